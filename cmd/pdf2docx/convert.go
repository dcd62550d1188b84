package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wudi/pdf2docx/classifier"
	"github.com/wudi/pdf2docx/convert"
	"github.com/wudi/pdf2docx/observability"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.pdf> [output.docx]",
	Short: "Convert a single PDF to DOCX",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().Int("min-text-chars", classifier.DefaultMinTextChars, "minimum embedded characters for direct extraction")
	convertCmd.Flags().Float64("render-scale", classifier.DefaultRenderScale, "rasterization scale for OCR pages")
	convertCmd.Flags().StringSlice("ocr-languages", []string{"eng"}, "OCR language hints")
	convertCmd.Flags().Int("max-pages", convert.DefaultMaxPages, "reject documents with more pages")
	convertCmd.Flags().Bool("no-page-images", false, "do not embed scanned page bitmaps in the output")
	convertCmd.Flags().Bool("quiet", false, "suppress progress output")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".docx"
	if len(args) == 2 {
		output = args[1]
	}

	minChars, _ := cmd.Flags().GetInt("min-text-chars")
	scale, _ := cmd.Flags().GetFloat64("render-scale")
	langs, _ := cmd.Flags().GetStringSlice("ocr-languages")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	noImages, _ := cmd.Flags().GetBool("no-page-images")
	quiet, _ := cmd.Flags().GetBool("quiet")

	pipeline := convert.New(convert.Options{
		Classifier:     classifier.Config{MinTextChars: minChars, RenderScale: scale},
		Languages:      langs,
		MaxPages:       maxPages,
		OmitPageImages: noImages,
		Logger:         observability.Stderr(),
	})

	progress := func(pct int, msg string) {
		if !quiet {
			fmt.Fprintf(os.Stderr, "\r%3d%% %-50s", pct, msg)
		}
	}
	err := pipeline.Convert(context.Background(), input, output, progress)
	if !quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("convert %s: %w", input, err)
	}
	fmt.Println(output)
	return nil
}
