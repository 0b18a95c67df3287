package controller

import (
	"skillforge_backend/internal/service"
	"skillforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.AssessmentService
}

func NewAssessmentController(svc *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

type StartAssessmentRequest struct {
	SkillName string `json:"skillName" binding:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID  uint `json:"questionId" binding:"required"`
	AnswerIndex *int `json:"answerIndex" binding:"required"`
}

// @Summary 开始技能测评
// @Tags 技能测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body StartAssessmentRequest true "技能名称"
// @Success 201 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /api/assessments [post]
func (c *AssessmentController) Start(ctx *gin.Context) {
	var req StartAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user := util.GetUserFromContext(ctx)

	view, err := c.Service.StartSession(ctx.Request.Context(), user.UserID, req.SkillName)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// @Summary 获取测评状态
// @Tags 技能测评
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) GetState(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	view, err := c.Service.GetState(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 提交答案
// @Tags 技能测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param body body SubmitAnswerRequest true "答案"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/assessments/{id}/response [post]
func (c *AssessmentController) SubmitAnswer(ctx *gin.Context) {
	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user := util.GetUserFromContext(ctx)

	view, err := c.Service.SubmitAnswer(ctx.Request.Context(), user.UserID, ctx.Param("id"), req.QuestionID, *req.AnswerIndex)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
