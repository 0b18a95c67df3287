package controller

import (
	"skillforge_backend/internal/service"
	"skillforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type IntegrityController struct {
	Service *service.IntegrityService
}

func NewIntegrityController(svc *service.IntegrityService) *IntegrityController {
	return &IntegrityController{Service: svc}
}

// @Summary 查看完整性判定
// @Tags 管理员
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "测评ID"
// @Success 200 {object} util.Response{data=model.IntegrityVerdict}
// @Router /api/admin/integrity/{sessionId} [get]
func (c *IntegrityController) GetVerdict(ctx *gin.Context) {
	v, err := c.Service.GetVerdict(ctx.Request.Context(), ctx.Param("sessionId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, v)
}
