// Package pdf provides read access to PDF documents for the conversion
// pipeline: page counting, embedded text extraction, and page rasterization.
// It is backed by MuPDF through go-fitz; callers depend on the Source
// interface so tests can substitute synthetic documents.
package pdf

import (
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// ErrInvalid marks a source that could not be opened or parsed as a PDF.
// It is a fatal, job-terminating condition for the pipeline.
var ErrInvalid = errors.New("invalid or unparseable PDF")

// Source is the read contract the pipeline consumes. Page indices are
// zero-based and valid in [0, PageCount).
type Source interface {
	// PageCount reports the number of pages in the document.
	PageCount() int
	// PageText returns the text embedded in the page's content streams,
	// without any recognition. An empty string means the page carries no
	// extractable text.
	PageText(index int) (string, error)
	// RenderPage rasterizes the page at the given scale factor relative to
	// the page's natural 72 DPI size. A scale of 2.0 yields roughly 144 DPI,
	// enough for recognition on typical scans.
	RenderPage(index int, scale float64) (image.Image, error)
	// Close releases the underlying document resources.
	Close() error
}

// Document is a Source backed by an open MuPDF document.
type Document struct {
	doc *fitz.Document
}

// Open parses the PDF at path. Failures wrap ErrInvalid.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &Document{doc: doc}, nil
}

// OpenBytes parses a PDF held in memory. Failures wrap ErrInvalid.
func OpenBytes(data []byte) (*Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &Document{doc: doc}, nil
}

func (d *Document) PageCount() int { return d.doc.NumPage() }

func (d *Document) PageText(index int) (string, error) {
	text, err := d.doc.Text(index)
	if err != nil {
		return "", fmt.Errorf("extract text from page %d: %w", index, err)
	}
	return text, nil
}

func (d *Document) RenderPage(index int, scale float64) (image.Image, error) {
	if scale <= 0 {
		scale = 1.0
	}
	img, err := d.doc.ImageDPI(index, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index, err)
	}
	return img, nil
}

func (d *Document) Close() error { return d.doc.Close() }
