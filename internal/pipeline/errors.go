package pipeline

import (
	"context"
	"errors"

	"github.com/Faultbox/panobake/internal/imageio"
	"github.com/Faultbox/panobake/pkg/equirect"
	"github.com/Faultbox/panobake/pkg/orient"
)

var (
	// ErrIO marks a failure reading or writing a frame image.
	ErrIO = errors.New("frame image i/o failed")
	// ErrOutputConflict is returned for a frame whose processed image path
	// is already taken by an earlier frame.
	ErrOutputConflict = errors.New("processed image path already used by another frame")
)

// Reason is the machine-readable kind of a frame failure or skip.
type Reason string

const (
	ReasonDegenerateBasis   Reason = "degenerate_basis"
	ReasonIO                Reason = "io"
	ReasonDimensionMismatch Reason = "dimension_mismatch"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonOutputConflict    Reason = "output_conflict"
	ReasonCanceled          Reason = "canceled"
	ReasonOther             Reason = "other"

	// skip reasons
	ReasonAlreadyBaked Reason = "already_baked"
	ReasonOverLimit    Reason = "over_limit"
)

// ReasonOf classifies a frame error.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	case errors.Is(err, orient.ErrDegenerateBasis):
		return ReasonDegenerateBasis
	case errors.Is(err, equirect.ErrDimensionMismatch):
		return ReasonDimensionMismatch
	case errors.Is(err, equirect.ErrUnsupportedFormat), errors.Is(err, imageio.ErrUnknownFormat):
		return ReasonUnsupportedFormat
	case errors.Is(err, ErrOutputConflict):
		return ReasonOutputConflict
	case errors.Is(err, ErrIO):
		return ReasonIO
	default:
		return ReasonOther
	}
}
