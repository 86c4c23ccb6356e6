package handler

import (
	"net/http"
	"time"

	"leadflow/internal/monitor"
	"leadflow/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type MonitorHandler struct {
	reporter *monitor.Reporter
}

func NewMonitorHandler(reporter *monitor.Reporter) *MonitorHandler {
	return &MonitorHandler{reporter: reporter}
}

func (h *MonitorHandler) Stats(c *gin.Context) {
	snap, err := h.reporter.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MonitoringStatsResponse{
		ActiveUploads:         snap.ActiveUploads,
		QueuedUploads:         snap.QueuedUploads,
		CompletedUploadsToday: snap.CompletedUploadsToday,
		FailedUploadsToday:    snap.FailedUploadsToday,
		AverageUploadTimeSec:  snap.AverageUploadTime.Seconds(),
		AverageProcessingSec:  snap.AverageProcessingTime.Seconds(),
		ErrorRate:             snap.ErrorRate,
	}))
}

func (h *MonitorHandler) Health(c *gin.Context) {
	health, err := h.reporter.Health(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if health.Status == monitor.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, httpdto.NewSuccessResponse(httpdto.HealthResponse{
		Status:            string(health.Status),
		UploadService:     health.UploadService,
		ProcessingService: health.ProcessingService,
		StorageService:    health.StorageService,
		QueueDepth:        health.QueueDepth,
		ErrorCount:        health.ErrorCount,
		LastHealthCheck:   health.LastHealthCheck.Format(time.RFC3339),
	}))
}
