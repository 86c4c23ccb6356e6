package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"leadflow/internal/domain/importjob"
	"leadflow/internal/services"
	"leadflow/internal/transport/httpdto"
	leadflow_errors "leadflow/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ImportHandler struct {
	service *services.JobService
}

func NewImportHandler(service *services.JobService) *ImportHandler {
	return &ImportHandler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, leadflow_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, leadflow_errors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, leadflow_errors.ErrAlreadyExists),
		errors.Is(err, leadflow_errors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, leadflow_errors.ErrStorage),
		errors.Is(err, leadflow_errors.ErrProcessingFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), httpdto.NewErrorFrom(err))
}

func (h *ImportHandler) Create(c *gin.Context) {
	var req httpdto.CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	workspaceID, err := uuid.Parse(req.WorkspaceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid workspace_id", "INVALID_REQUEST"))
		return
	}
	ownerID := uuid.Nil
	if req.OwnerID != "" {
		if ownerID, err = uuid.Parse(req.OwnerID); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid owner_id", "INVALID_REQUEST"))
			return
		}
	}

	job, err := h.service.CreateJob(c.Request.Context(), services.CreateJobInput{
		WorkspaceID:      workspaceID,
		OwnerID:          ownerID,
		Filename:         req.Filename,
		FileSize:         req.FileSize,
		MimeType:         req.FileType,
		UploadKind:       importjob.UploadKind(req.UploadType),
		ChunkSize:        req.ChunkSize,
		MaxRetries:       req.MaxRetries,
		ValidationRules:  req.ValidationRules,
		ProcessingConfig: req.ProcessingConfig,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	chunkURLs := make([]string, 0, job.TotalChunks)
	for i := 0; i < job.TotalChunks; i++ {
		chunkURLs = append(chunkURLs, chunkURL(job.ID, i))
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.CreateImportResponse{
		UploadJob: toJobDTO(job),
		UploadURL: fmt.Sprintf("/v1/imports/%s/chunks", job.ID),
		ChunkURLs: chunkURLs,
	}))
}

func (h *ImportHandler) UploadChunk(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid job id", "INVALID_REQUEST"))
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid chunk index", "INVALID_REQUEST"))
		return
	}

	// Chunk payloads arrive as the raw request body; the declared hash
	// rides in a header.
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable chunk body", "INVALID_REQUEST"))
		return
	}
	hash := c.GetHeader("X-Chunk-Hash")

	progress, err := h.service.RecordChunkUploaded(c.Request.Context(), jobID, index, data, hash)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := httpdto.UploadChunkResponse{
		ChunkID:        progress.ChunkID.String(),
		UploadProgress: progress.UploadProgress,
		UploadedChunks: progress.UploadedChunks,
		TotalChunks:    progress.TotalChunks,
	}
	if index+1 < progress.TotalChunks {
		resp.NextChunkURL = chunkURL(jobID, index+1)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *ImportHandler) StartProcessing(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid job id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.StartProcessingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
	}

	handle, err := h.service.StartProcessing(c.Request.Context(), jobID, req.BatchSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse(httpdto.StartProcessingResponse{
		ProcessingJobID:     handle.JobID.String(),
		TotalBatches:        handle.TotalBatches,
		TotalRecords:        handle.TotalRecords,
		EstimatedCompletion: handle.EstimatedCompletion.UTC().Format(time.RFC3339),
	}))
}

func (h *ImportHandler) Progress(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid job id", "INVALID_REQUEST"))
		return
	}
	progress, err := h.service.Progress(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	job := progress.Job
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ProgressResponse{
		UploadJobID:        job.ID.String(),
		Filename:           job.Filename,
		FileSize:           job.FileSize,
		Status:             string(job.Status),
		UploadProgress:     job.UploadProgress,
		ProcessingProgress: job.ProcessingProgress,
		TotalChunks:        job.TotalChunks,
		UploadedChunks:     progress.UploadedChunks,
		TotalRecords:       job.TotalRecords,
		ProcessedRecords:   job.ProcessedRecords,
		ValidRecords:       job.ValidRecords,
		InvalidRecords:     job.InvalidRecords,
		ErrorMessage:       job.ErrorMessage,
	}))
}

func (h *ImportHandler) Stats(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid job id", "INVALID_REQUEST"))
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	counts := make(map[string]int64, len(stats.BatchCounts))
	for status, count := range stats.BatchCounts {
		counts[string(status)] = count
	}
	resp := httpdto.StatsResponse{
		BatchCounts:    counts,
		ProcessingRate: stats.ProcessingRate,
	}
	if stats.EstimatedCompletion != nil {
		resp.EstimatedCompletion = stats.EstimatedCompletion.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *ImportHandler) Cancel(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid job id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Cancel(c.Request.Context(), jobID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ImportHandler) List(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Query("workspace_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid workspace_id", "INVALID_REQUEST"))
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	jobs, total, err := h.service.ListJobs(c.Request.Context(), workspaceID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	dtos := make([]httpdto.UploadJobDTO, 0, len(jobs))
	for _, job := range jobs {
		dtos = append(dtos, toJobDTO(job))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListImportsResponse{Jobs: dtos, Total: total}))
}

func (h *ImportHandler) Errors(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid job id", "INVALID_REQUEST"))
		return
	}
	rowErrors, err := h.service.StoredErrors(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	dtos := make([]httpdto.RowErrorDTO, 0, len(rowErrors))
	for _, re := range rowErrors {
		dtos = append(dtos, httpdto.RowErrorDTO{
			RecordIndex: re.RecordIndex,
			Column:      re.Column,
			Message:     re.Message,
		})
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"errors": dtos}))
}

func chunkURL(jobID uuid.UUID, index int) string {
	return fmt.Sprintf("/v1/imports/%s/chunks/%d", jobID, index)
}

func toJobDTO(job importjob.UploadJob) httpdto.UploadJobDTO {
	dto := httpdto.UploadJobDTO{
		ID:                 job.ID.String(),
		WorkspaceID:        job.WorkspaceID.String(),
		Filename:           job.Filename,
		FileSize:           job.FileSize,
		MimeType:           job.MimeType,
		ChunkSize:          job.ChunkSize,
		TotalChunks:        job.TotalChunks,
		Status:             string(job.Status),
		UploadProgress:     job.UploadProgress,
		ProcessingProgress: job.ProcessingProgress,
		TotalRecords:       job.TotalRecords,
		ValidRecords:       job.ValidRecords,
		InvalidRecords:     job.InvalidRecords,
		CreatedAt:          job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
