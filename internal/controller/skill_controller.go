package controller

import (
	"skillforge_backend/internal/service"
	"skillforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SkillController struct {
	Bank service.QuestionBank
}

func NewSkillController(bank service.QuestionBank) *SkillController {
	return &SkillController{Bank: bank}
}

// @Summary 可测评技能
// @Tags 技能测评
// @Produce json
// @Success 200 {object} util.Response{data=[]model.SkillSummary}
// @Router /api/skills/available [get]
func (c *SkillController) Available(ctx *gin.Context) {
	skills, err := c.Bank.Skills(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, skills)
}
