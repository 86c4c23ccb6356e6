package httpdto

import (
	leadflow_errors "leadflow/pkg/errors"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// NewErrorFrom builds the envelope for a pipeline error, deriving the stable
// code from its sentinel.
func NewErrorFrom(err error) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err.Error(),
		Code:    leadflow_errors.Code(err),
	}
}
