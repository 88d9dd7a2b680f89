package services

import (
	"context"
	"errors"
	"fmt"

	"erwpulse/internal/analytics"
	"erwpulse/internal/dataprocessing"
	apierrors "erwpulse/internal/errors"
)

var (
	// ErrUpstreamUnavailable wraps every failed call to the sample store.
	ErrUpstreamUnavailable = errors.New("sample store unavailable")

	// Upload errors
	ErrEmptyUpload      = errors.New("uploaded file is empty")
	ErrMissingFeedstock = errors.New("feedstock name is required")
	ErrInvalidThreshold = errors.New("saturation threshold must not be negative")
	ErrInvalidUploadKey = errors.New("upload key is outside the archive")
)

// upstreamError marks a store failure. Cancellation and deadlines pass
// through untouched so the transport can tell them apart.
func upstreamError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apierrors.NewUpstreamError(op, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err))
}

// storageError marks a failed write. The store stays reachable through
// ErrUpstreamUnavailable, the type tells a failed write from a failed read.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apierrors.NewStorageError(op, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err))
}

// classify maps errors raised by the analytics and workbook layers onto
// application errors. Anything else is returned unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, analytics.ErrInvalidGroupingField),
		errors.Is(err, analytics.ErrUnknownField),
		errors.Is(err, analytics.ErrInvalidSpec):
		return apierrors.NewAppValidationError("invalid aggregation request", err)
	case errors.Is(err, dataprocessing.ErrUnreadableWorkbook),
		errors.Is(err, dataprocessing.ErrNoSheets):
		return apierrors.NewParsingError("workbook could not be read", err)
	case errors.Is(err, ErrEmptyUpload),
		errors.Is(err, ErrMissingFeedstock),
		errors.Is(err, ErrInvalidThreshold),
		errors.Is(err, ErrInvalidUploadKey):
		return apierrors.NewAppValidationError(err.Error(), err)
	default:
		return err
	}
}
