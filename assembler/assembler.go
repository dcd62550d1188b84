// Package assembler turns ordered per-page extraction results into a single
// Word (DOCX) artifact. Pages appear in original order, each introduced by a
// visible page heading; failed pages are represented by a placeholder
// paragraph instead of being silently dropped.
package assembler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	docx "github.com/fumiama/go-docx"

	"github.com/wudi/pdf2docx/classifier"
)

// PageResult is one page's contribution to the output document. Index is the
// zero-based page number; results handed to Assemble must be contiguous and
// in order.
type PageResult struct {
	Index      int
	Mode       classifier.Mode
	Paragraphs []string
	Success    bool
	// FailureReason is the human-readable cause rendered into the placeholder
	// paragraph when Success is false.
	FailureReason string
	// Image is an optional encoded bitmap of the page, embedded after its
	// text so scanned pages keep their visual form alongside the recognized
	// content.
	Image []byte
}

// Half-point font sizes used for the generated document.
const (
	sizePageHeading = "32"
	sizeHeading     = "28"
	sizeSubheading  = "26"
)

// Assemble writes one DOCX document containing every page result in order.
// The artifact is written to a temporary file and renamed into place, so a
// mid-assembly failure leaves no partial artifact at outPath.
func Assemble(results []PageResult, outPath string) error {
	if len(results) == 0 {
		return errors.New("no page results to assemble")
	}
	for i, r := range results {
		if r.Index != i {
			return fmt.Errorf("page results out of order: position %d holds page %d", i, r.Index)
		}
	}

	doc := docx.New().WithDefaultTheme()
	for _, r := range results {
		heading := doc.AddParagraph()
		heading.AddText(fmt.Sprintf("Page %d", r.Index+1)).Size(sizePageHeading).Bold()

		if !r.Success {
			reason := r.FailureReason
			if reason == "" {
				reason = "unknown error"
			}
			doc.AddParagraph().AddText(fmt.Sprintf("[Page %d could not be converted: %s]", r.Index+1, reason))
		} else {
			for _, para := range r.Paragraphs {
				addParagraph(doc, para)
			}
		}

		if len(r.Image) > 0 {
			// An undecodable bitmap forfeits its embed; the page text stands.
			if _, err := doc.AddParagraph().AddInlineDrawing(r.Image); err != nil {
				continue
			}
		}
	}

	return writeAtomic(doc, outPath)
}

// addParagraph emits one paragraph, promoting likely headings: short
// all-caps text becomes a heading, short text ending in a colon a
// subheading.
func addParagraph(doc *docx.Docx, text string) {
	p := doc.AddParagraph()
	switch {
	case looksLikeHeading(text):
		p.AddText(text).Size(sizeHeading).Bold()
	case looksLikeSubheading(text):
		p.AddText(text).Size(sizeSubheading).Bold()
	default:
		p.AddText(text)
	}
}

func looksLikeHeading(text string) bool {
	if len(text) == 0 || len(text) >= 100 {
		return false
	}
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func looksLikeSubheading(text string) bool {
	return len(text) < 200 && strings.HasSuffix(strings.TrimSpace(text), ":")
}

func writeAtomic(doc *docx.Docx, outPath string) error {
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, ".docx-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := doc.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}
