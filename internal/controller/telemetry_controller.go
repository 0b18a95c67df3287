package controller

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"skillforge_backend/internal/service"
	"skillforge_backend/internal/util"
	"skillforge_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TelemetryController struct {
	Service *service.IntegrityService
}

func NewTelemetryController(svc *service.IntegrityService) *TelemetryController {
	return &TelemetryController{Service: svc}
}

type TelemetryEvent struct {
	EventID   string                 `json:"eventId"`
	EventType string                 `json:"eventType"`
	Timestamp json.RawMessage        `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

type IngestTelemetryRequest struct {
	SessionID string           `json:"sessionId" binding:"required"`
	Events    []TelemetryEvent `json:"events"`
}

// parseTimestamp accepts RFC 3339 strings and epoch milliseconds. Anything
// else yields the zero time, which ingestion discards.
func parseTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC()
		}
		raw = []byte(s)
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// @Summary 上报行为遥测
// @Description 遥测为尽力而为，失败只记录日志，始终返回 202
// @Tags 反作弊
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body IngestTelemetryRequest true "事件批次"
// @Success 202 {object} util.Response{data=service.IngestResult}
// @Router /api/v1/telemetry/ingest [post]
func (c *TelemetryController) Ingest(ctx *gin.Context) {
	var req IngestTelemetryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.Log.Warn("telemetry batch rejected", zap.Error(err))
		util.Accepted(ctx, service.IngestResult{})
		return
	}
	user := util.GetUserFromContext(ctx)

	events := make([]service.TelemetryEventInput, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, service.TelemetryEventInput{
			EventID:   e.EventID,
			EventType: e.EventType,
			Timestamp: parseTimestamp(e.Timestamp),
			Payload:   e.Payload,
		})
	}

	res, err := c.Service.IngestBatch(ctx.Request.Context(), user.UserID, req.SessionID, events)
	if err != nil {
		logger.Log.Warn("telemetry ingestion failed",
			zap.String("sessionId", req.SessionID),
			zap.String("reason", util.ReasonOf(err)),
			zap.Error(err))
		util.Accepted(ctx, service.IngestResult{Discarded: len(events)})
		return
	}
	util.Accepted(ctx, res)
}
