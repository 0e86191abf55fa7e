package client

import (
	"context"
	"errors"
	"strings"

	"github.com/kjstillabower/panchang-bot/internal/models"
)

// CategorizeError maps an error to a stable models.ErrorKind for metrics.
// Typed pipeline errors keep their kind; anything else is classified by heuristics.
func CategorizeError(err error) models.ErrorKind {
	if err == nil {
		return ""
	}

	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrorKindTransport
	}

	errStr := err.Error()
	if strings.Contains(errStr, "network") || strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") {
		return models.ErrorKindTransport
	}

	if strings.Contains(errStr, "parse") || strings.Contains(errStr, "unmarshal") ||
		strings.Contains(errStr, "decode") {
		return models.ErrorKindDecode
	}

	return models.ErrorKindUnexpected
}

// Classify converts any error into a *models.PipelineError using CategorizeError.
func Classify(err error) *models.PipelineError {
	if err == nil {
		return nil
	}
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	switch CategorizeError(err) {
	case models.ErrorKindTransport:
		return models.NewTransportError(err)
	case models.ErrorKindDecode:
		return models.NewDecodeError(err)
	default:
		return models.NewUnexpectedError(err)
	}
}
