package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable marks a recognizer that is missing or failed to initialize.
// It is distinct from an empty recognition result: a page with no readable
// text yields an empty Result, never this error.
var ErrUnavailable = errors.New("ocr engine unavailable")

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Input encapsulates a single page bitmap submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier echoed back in the Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// PageIndex links the input back to the zero-based PDF page it renders.
	PageIndex int
	// DPI carries the effective dots-per-inch of the bitmap. Providers use
	// this for scaling and layout heuristics; zero means unknown.
	DPI int
	// Languages lists trained-data hints (e.g., "eng", "deu").
	Languages []string
	// Metadata passes engine-specific knobs (e.g., "tessedit_pageseg_mode")
	// without hard-coding them into the API surface.
	Metadata map[string]string
}

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// PageIndex mirrors the Input.PageIndex.
	PageIndex int
	// PlainText is the linearized decoded text after cleanup. Empty means the
	// recognizer ran and found nothing readable.
	PlainText string
	// Paragraphs is PlainText segmented at block boundaries.
	Paragraphs []string
	// Confidence is the mean word confidence in [0,1]; zero when the engine
	// reports none.
	Confidence float64
	// Language indicates the dominant language hint used, if any.
	Language string
}

// Engine is the OCR provider contract: one image in, one result out. A
// missing or broken provider returns an error wrapping ErrUnavailable; it
// never signals absence by returning an empty Result.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}
