package controller

import (
	"net/http"

	"skillforge_backend/internal/service"
	"skillforge_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	Service *service.BadgeService
}

func NewBadgeController(svc *service.BadgeService) *BadgeController {
	return &BadgeController{Service: svc}
}

type IssueBadgeRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// @Summary 颁发徽章
// @Description 未通过返回 409 assessment_not_passed；完整性校验失败返回 403 integrity_check_failed
// @Tags 徽章
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body IssueBadgeRequest true "测评ID"
// @Success 201 {object} util.Response{data=model.Badge}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/badges/issue [post]
func (c *BadgeController) Issue(ctx *gin.Context) {
	var req IssueBadgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user := util.GetUserFromContext(ctx)

	badge, err := c.Service.IssueBadge(ctx.Request.Context(), user.UserID, req.SessionID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, util.Response{
		Code:    http.StatusCreated,
		Message: "issued",
		Data:    badge,
	})
}

// @Summary 我的徽章
// @Tags 徽章
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/badges [get]
func (c *BadgeController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	badges, err := c.Service.ListBadges(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}
