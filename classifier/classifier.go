// Package classifier decides, per PDF page, whether embedded text is usable
// as-is or the page must be rasterized and routed to OCR.
package classifier

import (
	"fmt"
	"image"
	"strings"

	"github.com/wudi/pdf2docx/pdf"
)

// Mode identifies how a page's text was (or will be) recovered.
type Mode string

const (
	// ModeDirect means the page carries enough embedded text to use directly.
	ModeDirect Mode = "direct"
	// ModeOCR means the page is image-only (or text-poor) and needs recognition.
	ModeOCR Mode = "ocr"
)

// DefaultMinTextChars is the conservative density threshold: pages whose
// normalized embedded text has fewer extractable characters are treated as
// image-only, even if they are not strictly empty.
const DefaultMinTextChars = 20

// DefaultRenderScale rasterizes at twice the page's natural size (~144 DPI),
// which raises recognition quality on typical scans.
const DefaultRenderScale = 2.0

// Config tunes classification.
type Config struct {
	// MinTextChars is the minimum number of non-space characters the page's
	// embedded text must contain to qualify for direct extraction.
	MinTextChars int
	// RenderScale is the rasterization scale used for pages routed to OCR.
	RenderScale float64
}

// DefaultConfig returns the tuning the service ships with.
func DefaultConfig() Config {
	return Config{MinTextChars: DefaultMinTextChars, RenderScale: DefaultRenderScale}
}

// WithDefaults returns c with unset fields replaced by the shipped defaults.
// Callers that read Config fields directly should normalize through it first,
// so a partially populated Config means "defaults for the rest" everywhere.
func (c Config) WithDefaults() Config {
	if c.MinTextChars <= 0 {
		c.MinTextChars = DefaultMinTextChars
	}
	if c.RenderScale <= 0 {
		c.RenderScale = DefaultRenderScale
	}
	return c
}

// Classification is the two-variant outcome of inspecting one page. Exactly
// one of Paragraphs (ModeDirect) or Image (ModeOCR) is populated.
type Classification struct {
	Mode       Mode
	Paragraphs []string
	Image      image.Image
}

// ClassifyPage inspects page index of src. If the embedded text clears the
// density threshold the page is classified ModeDirect with its paragraphs;
// otherwise — including when text extraction itself fails — the page is
// rendered to a bitmap and classified ModeOCR. A render failure is returned
// as an error for the caller to record as a page decode failure.
func ClassifyPage(src pdf.Source, index int, cfg Config) (Classification, error) {
	cfg = cfg.WithDefaults()

	text, err := src.PageText(index)
	if err == nil && TextDensity(text) >= cfg.MinTextChars {
		return Classification{Mode: ModeDirect, Paragraphs: SplitParagraphs(text)}, nil
	}

	img, rerr := src.RenderPage(index, cfg.RenderScale)
	if rerr != nil {
		return Classification{}, fmt.Errorf("rasterize page %d: %w", index, rerr)
	}
	return Classification{Mode: ModeOCR, Image: img}, nil
}

// TextDensity counts the non-whitespace characters of text after
// normalization. It is the signal the direct/OCR decision keys on.
func TextDensity(text string) int {
	n := 0
	for _, r := range text {
		if !isSpace(r) {
			n++
		}
	}
	return n
}

// SplitParagraphs breaks raw page text into paragraph strings. A blank line
// starts a new paragraph; line breaks inside a paragraph collapse to single
// spaces, and runs of whitespace collapse to one space. Empty paragraphs are
// dropped.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		para := strings.Join(strings.Fields(block), " ")
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
