package ocr

import "context"

var defaultEngine Engine = &unavailableEngine{}

// DefaultEngine returns the process-wide OCR engine. Importing the tesseract
// subpackage installs the Tesseract provider; without it the default engine
// reports ErrUnavailable so scanned pages surface a distinct failure instead
// of silently producing empty text.
func DefaultEngine() Engine {
	return defaultEngine
}

// SetDefaultEngine sets the process-wide OCR engine.
func SetDefaultEngine(engine Engine) {
	defaultEngine = engine
}

type unavailableEngine struct{}

func (unavailableEngine) Name() string { return "unavailable" }

func (unavailableEngine) Recognize(ctx context.Context, input Input) (Result, error) {
	return Result{}, ErrUnavailable
}
