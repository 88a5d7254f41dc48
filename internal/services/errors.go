package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingAsset       = errors.New("missing asset")
	ErrAudioUnreadable    = errors.New("audio unreadable")
	ErrEncode             = errors.New("encode error")
	ErrTimeout            = errors.New("timeout")
	ErrCanceled           = errors.New("canceled")
	ErrConcat             = errors.New("concat error")
	ErrInvalidManifest    = errors.New("invalid manifest")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrConfiguration      = errors.New("configuration error")
	ErrExternalTool       = errors.New("external tool error")
)

// Reason is the stable label recorded in results and reports for a failure.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonMissingAsset       Reason = "MissingAsset"
	ReasonAudioUnreadable    Reason = "AudioUnreadable"
	ReasonEncodeError        Reason = "EncodeError"
	ReasonTimeout            Reason = "Timeout"
	ReasonCanceled           Reason = "Canceled"
	ReasonConcatError        Reason = "ConcatError"
	ReasonInvalidManifest    Reason = "InvalidManifest"
	ReasonInvariantViolation Reason = "InvariantViolation"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ReasonOf maps an error onto its failure label. Context errors are folded
// into Timeout and Canceled so callers never have to inspect them directly.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrInvalidManifest):
		return ReasonInvalidManifest
	case errors.Is(err, ErrInvariantViolation):
		return ReasonInvariantViolation
	case errors.Is(err, ErrMissingAsset):
		return ReasonMissingAsset
	case errors.Is(err, ErrAudioUnreadable):
		return ReasonAudioUnreadable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, ErrConcat):
		return ReasonConcatError
	default:
		return ReasonEncodeError
	}
}

// ContextError converts a finished context into the matching marker, or nil
// when the context is still live.
func ContextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
