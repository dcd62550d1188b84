package convert

import (
	"errors"

	"github.com/wudi/pdf2docx/ocr"
	"github.com/wudi/pdf2docx/pdf"
)

// Fatal error kinds. A pipeline error matching one of these terminates the
// job; anything page-scoped is absorbed into the page's result instead.
var (
	// ErrInvalidInput marks an unparseable or out-of-bounds source document.
	ErrInvalidInput = pdf.ErrInvalid
	// ErrAssembly marks a failure to write the output artifact.
	ErrAssembly = errors.New("artifact assembly failed")
	// ErrTimeout marks a conversion that exceeded its maximum lifetime.
	ErrTimeout = errors.New("conversion timed out")
)

// ErrRecognizerUnavailable marks a missing or broken OCR engine. It is
// page-scoped: affected pages get failure placeholders and the job still
// completes.
var ErrRecognizerUnavailable = ocr.ErrUnavailable
