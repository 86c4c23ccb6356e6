package leadflow_errors

import "errors"

// Import pipeline errors
var (
	ErrFileTooLarge            = errors.New("file too large")
	ErrInvalidFileType         = errors.New("invalid file type")
	ErrInvalidChunkSize        = errors.New("invalid chunk size")
	ErrChunkUploadFailed       = errors.New("chunk upload failed")
	ErrChunksIncomplete        = errors.New("chunks incomplete")
	ErrProcessingFailed        = errors.New("processing failed")
	ErrValidationFailed        = errors.New("validation failed")
	ErrTimeout                 = errors.New("timeout")
	ErrNetwork                 = errors.New("network error")
	ErrStorage                 = errors.New("storage error")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrQuotaExceeded           = errors.New("quota exceeded")
	ErrCorruptedFile           = errors.New("corrupted file")
	ErrCancelled               = errors.New("cancelled")
	ErrUnknown                 = errors.New("unknown error")
)

// Common errors
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
)

// Code maps a sentinel error to a stable string code for API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return "FILE_TOO_LARGE"
	case errors.Is(err, ErrInvalidFileType):
		return "INVALID_FILE_TYPE"
	case errors.Is(err, ErrInvalidChunkSize):
		return "INVALID_CHUNK_SIZE"
	case errors.Is(err, ErrChunkUploadFailed):
		return "CHUNK_UPLOAD_FAILED"
	case errors.Is(err, ErrChunksIncomplete):
		return "CHUNKS_INCOMPLETE"
	case errors.Is(err, ErrProcessingFailed):
		return "PROCESSING_FAILED"
	case errors.Is(err, ErrValidationFailed):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrNetwork):
		return "NETWORK_ERROR"
	case errors.Is(err, ErrStorage):
		return "STORAGE_ERROR"
	case errors.Is(err, ErrInsufficientPermissions):
		return "INSUFFICIENT_PERMISSIONS"
	case errors.Is(err, ErrQuotaExceeded):
		return "QUOTA_EXCEEDED"
	case errors.Is(err, ErrCorruptedFile):
		return "CORRUPTED_FILE"
	case errors.Is(err, ErrCancelled):
		return "CANCELLED"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_REQUEST"
	default:
		return "UNKNOWN_ERROR"
	}
}
