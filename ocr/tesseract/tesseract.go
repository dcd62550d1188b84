// Package tesseract provides the default OCR engine backed by the gosseract
// client. Importing it installs the engine process-wide.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/pdf2docx/ocr"
)

func init() {
	ocr.SetDefaultEngine(NewEngine())
}

// Engine implements ocr.Engine using the gosseract client.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a Tesseract-backed OCR engine.
func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image input. A missing or broken
// Tesseract installation surfaces as an error wrapping ocr.ErrUnavailable;
// an unreadable page yields an empty result without error.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (res ocr.Result, err error) {
	// gosseract aborts client construction when the native library or trained
	// data is missing; fold that into the unavailable error kind rather than
	// crashing the pipeline worker.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ocr.ErrUnavailable, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	c := e.clientFactory()
	if c == nil {
		return ocr.Result{}, ocr.ErrUnavailable
	}
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	paragraphs := ocr.SegmentParagraphs(text)
	return ocr.Result{
		InputID:    in.ID,
		PageIndex:  in.PageIndex,
		PlainText:  strings.Join(paragraphs, "\n\n"),
		Paragraphs: paragraphs,
		Confidence: meanConfidence(c),
		Language:   firstLanguage(in.Languages),
	}, nil
}

func meanConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

func firstLanguage(langs []string) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}
