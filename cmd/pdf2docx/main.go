// Package main is the entry point for the pdf2docx CLI: a PDF to Word
// conversion engine exposed as a one-shot converter and as an HTTP service
// with asynchronous job tracking.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Installs the Tesseract OCR engine as the process default.
	_ "github.com/wudi/pdf2docx/ocr/tesseract"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pdf2docx",
	Short: "Convert PDF documents to editable Word documents",
	Long: `pdf2docx converts PDF files to Word (DOCX) documents. Pages with embedded
text are extracted directly; scanned pages are rasterized and recognized with
OCR. The serve subcommand runs the conversion engine as an HTTP service with
asynchronous jobs, progress polling and artifact download.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2docx.yaml or ~/.config/pdf2docx/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2docx")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2docx"))
		}
	}

	viper.SetEnvPrefix("PDF2DOCX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
