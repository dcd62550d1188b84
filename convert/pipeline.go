// Package convert orchestrates the per-page conversion of one PDF into one
// Word artifact: classification, direct extraction or OCR, and assembly,
// with progress reported back to the caller.
package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wudi/pdf2docx/assembler"
	"github.com/wudi/pdf2docx/classifier"
	"github.com/wudi/pdf2docx/observability"
	"github.com/wudi/pdf2docx/ocr"
	"github.com/wudi/pdf2docx/pdf"
)

// DefaultMaxPages bounds accepted documents; beyond it the source is treated
// as invalid input rather than queued for an unbounded conversion.
const DefaultMaxPages = 100

// ProgressFunc receives pipeline progress. Percent is 0-100, monotonic, and
// stays below 100 until the artifact is fully assembled.
type ProgressFunc func(percent int, message string)

// Options tunes a Pipeline. The zero value is usable: defaults are filled in
// by New.
type Options struct {
	Classifier classifier.Config
	Preprocess ocr.Preprocess
	// Engine overrides the process-wide OCR engine. Nil selects
	// ocr.DefaultEngine at conversion time.
	Engine ocr.Engine
	// Languages are OCR trained-data hints.
	Languages []string
	// MaxPages rejects documents with more pages as invalid input.
	MaxPages int
	// OmitPageImages disables embedding each OCR page's rendered bitmap into
	// the artifact alongside its recognized text.
	OmitPageImages bool
	Logger         observability.Logger
}

// Pipeline converts PDF sources to DOCX artifacts. It is stateless across
// conversions and safe for concurrent use.
type Pipeline struct {
	opts Options
	log  observability.Logger
}

// New builds a Pipeline with defaults applied.
func New(opts Options) *Pipeline {
	if opts.MaxPages == 0 {
		opts.MaxPages = DefaultMaxPages
	}
	// Normalize once so every later read of the config (page classification,
	// the DPI hint handed to OCR) sees the same effective values.
	opts.Classifier = opts.Classifier.WithDefaults()
	if opts.Preprocess == (ocr.Preprocess{}) {
		opts.Preprocess = ocr.DefaultPreprocess()
	}
	log := opts.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Pipeline{opts: opts, log: log}
}

// Convert opens the PDF at srcPath and writes the converted document to
// outPath. See ConvertSource for the error contract.
func (p *Pipeline) Convert(ctx context.Context, srcPath, outPath string, progress ProgressFunc) error {
	if progress == nil {
		progress = func(int, string) {}
	}
	progress(0, "Opening PDF document...")

	doc, err := pdf.Open(srcPath)
	if err != nil {
		return err
	}
	defer doc.Close()
	return p.ConvertSource(ctx, doc, outPath, progress)
}

// ConvertSource runs the conversion over an already-open source. A per-page
// extraction or recognition failure is recorded in that page's section of
// the artifact and does not abort the conversion; only an invalid source,
// an assembly failure, or context expiry is fatal.
func (p *Pipeline) ConvertSource(ctx context.Context, src pdf.Source, outPath string, progress ProgressFunc) error {
	if progress == nil {
		progress = func(int, string) {}
	}
	start := time.Now()

	total := src.PageCount()
	if total == 0 {
		return fmt.Errorf("%w: document has no pages", ErrInvalidInput)
	}
	if p.opts.MaxPages > 0 && total > p.opts.MaxPages {
		return fmt.Errorf("%w: document has %d pages, maximum is %d", ErrInvalidInput, total, p.opts.MaxPages)
	}

	results := make([]assembler.PageResult, 0, total)
	var direct, recognized, failed int
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return wrapContextErr(err)
		}
		res := p.convertPage(ctx, src, i)
		results = append(results, res)

		switch {
		case !res.Success:
			failed++
		case res.Mode == classifier.ModeOCR:
			recognized++
		default:
			direct++
		}

		msg := fmt.Sprintf("Processing page %d of %d...", i+1, total)
		if res.Mode == classifier.ModeOCR {
			msg = fmt.Sprintf("Performing OCR on page %d of %d...", i+1, total)
		}
		progress(pagePercent(i+1, total), msg)
	}

	progress(99, "Saving Word document...")
	if err := assembler.Assemble(results, outPath); err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	progress(100, "Conversion completed successfully!")

	p.log.Info("conversion finished",
		observability.Int(observability.MetricPageCount, total),
		observability.Int(observability.MetricDirectPages, direct),
		observability.Int(observability.MetricOCRPages, recognized),
		observability.Int(observability.MetricFailedPages, failed),
		observability.Duration(observability.MetricConvertTime, time.Since(start)),
	)
	return nil
}

func (p *Pipeline) convertPage(ctx context.Context, src pdf.Source, index int) assembler.PageResult {
	cls, err := classifier.ClassifyPage(src, index, p.opts.Classifier)
	if err != nil {
		p.log.Warn("page classification failed",
			observability.Int("page", index), observability.Error("err", err))
		return assembler.PageResult{Index: index, Mode: classifier.ModeOCR, FailureReason: err.Error()}
	}
	if cls.Mode == classifier.ModeDirect {
		return assembler.PageResult{
			Index:      index,
			Mode:       classifier.ModeDirect,
			Paragraphs: cls.Paragraphs,
			Success:    true,
		}
	}

	// The scan itself goes into the artifact with the recognized text, so the
	// page keeps its visual form even when recognition is poor or fails.
	var embed []byte
	if !p.opts.OmitPageImages {
		embed = encodePageImage(cls.Image)
	}

	in, err := ocr.InputFromImage(cls.Image, index, p.opts.Preprocess,
		ocr.WithLanguages(p.opts.Languages...),
		ocr.WithDPI(int(72*p.opts.Classifier.RenderScale)),
	)
	if err != nil {
		p.log.Warn("page encoding failed",
			observability.Int("page", index), observability.Error("err", err))
		return assembler.PageResult{Index: index, Mode: classifier.ModeOCR, FailureReason: err.Error(), Image: embed}
	}

	engine := p.opts.Engine
	if engine == nil {
		engine = ocr.DefaultEngine()
	}
	res, err := engine.Recognize(ctx, in)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, ocr.ErrUnavailable) {
			reason = "OCR engine unavailable"
		}
		p.log.Warn("page recognition failed",
			observability.Int("page", index), observability.Error("err", err))
		return assembler.PageResult{Index: index, Mode: classifier.ModeOCR, FailureReason: reason, Image: embed}
	}

	return assembler.PageResult{
		Index:      index,
		Mode:       classifier.ModeOCR,
		Paragraphs: res.Paragraphs,
		Success:    true,
		Image:      embed,
	}
}

// pagePercent maps done/total onto 0-100, held at 99 until assembly runs.
func pagePercent(done, total int) int {
	pct := int(math.Round(100 * float64(done) / float64(total)))
	if pct > 99 {
		pct = 99
	}
	return pct
}

func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
