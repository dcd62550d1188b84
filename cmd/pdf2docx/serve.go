package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wudi/pdf2docx/classifier"
	"github.com/wudi/pdf2docx/convert"
	"github.com/wudi/pdf2docx/jobs"
	"github.com/wudi/pdf2docx/observability"
	"github.com/wudi/pdf2docx/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion engine as an HTTP service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("data-dir", "data", "durable storage root for uploads, artifacts and job records")
	serveCmd.Flags().Int("workers", jobs.DefaultWorkers, "maximum concurrently running conversions")
	serveCmd.Flags().Duration("max-job-lifetime", jobs.DefaultMaxJobLifetime, "watchdog limit before a stuck job is failed")
	serveCmd.Flags().Duration("retention", jobs.DefaultRetention, "how long jobs and their files are kept")
	serveCmd.Flags().Duration("reap-interval", jobs.DefaultReapInterval, "period of the cleanup schedule")
	serveCmd.Flags().Int("max-pages", convert.DefaultMaxPages, "reject documents with more pages")
	serveCmd.Flags().Int("min-text-chars", classifier.DefaultMinTextChars, "minimum embedded characters for direct extraction")
	serveCmd.Flags().Float64("render-scale", classifier.DefaultRenderScale, "rasterization scale for OCR pages")
	serveCmd.Flags().StringSlice("ocr-languages", []string{"eng"}, "OCR language hints")
	serveCmd.Flags().Bool("no-page-images", false, "do not embed scanned page bitmaps in the output")
	serveCmd.Flags().Int64("max-upload-mb", server.DefaultMaxUploadBytes>>20, "maximum accepted upload size in MB")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("storage.data_dir", serveCmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("jobs.workers", serveCmd.Flags().Lookup("workers"))
	viper.BindPFlag("jobs.max_lifetime", serveCmd.Flags().Lookup("max-job-lifetime"))
	viper.BindPFlag("jobs.retention", serveCmd.Flags().Lookup("retention"))
	viper.BindPFlag("jobs.reap_interval", serveCmd.Flags().Lookup("reap-interval"))
	viper.BindPFlag("convert.max_pages", serveCmd.Flags().Lookup("max-pages"))
	viper.BindPFlag("classifier.min_text_chars", serveCmd.Flags().Lookup("min-text-chars"))
	viper.BindPFlag("classifier.render_scale", serveCmd.Flags().Lookup("render-scale"))
	viper.BindPFlag("ocr.languages", serveCmd.Flags().Lookup("ocr-languages"))
	viper.BindPFlag("convert.omit_page_images", serveCmd.Flags().Lookup("no-page-images"))
	viper.BindPFlag("server.max_upload_mb", serveCmd.Flags().Lookup("max-upload-mb"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := observability.Stderr()

	pipeline := convert.New(convert.Options{
		Classifier: classifier.Config{
			MinTextChars: viper.GetInt("classifier.min_text_chars"),
			RenderScale:  viper.GetFloat64("classifier.render_scale"),
		},
		Languages:      viper.GetStringSlice("ocr.languages"),
		MaxPages:       viper.GetInt("convert.max_pages"),
		OmitPageImages: viper.GetBool("convert.omit_page_images"),
		Logger:         log,
	})

	mgr, err := jobs.NewManager(pipeline, jobs.Config{
		DataDir:        viper.GetString("storage.data_dir"),
		Workers:        viper.GetInt("jobs.workers"),
		MaxJobLifetime: viper.GetDuration("jobs.max_lifetime"),
		Retention:      viper.GetDuration("jobs.retention"),
		ReapInterval:   viper.GetDuration("jobs.reap_interval"),
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("initialize job manager: %w", err)
	}
	mgr.Start()
	defer mgr.Stop()

	srv := server.New(mgr, server.Config{
		MaxUploadBytes: viper.GetInt64("server.max_upload_mb") << 20,
		Logger:         log,
	})

	addr := viper.GetString("server.addr")
	log.Info("listening",
		observability.String("addr", addr),
		observability.Duration("retention", viper.GetDuration("jobs.retention")),
		observability.Int("workers", viper.GetInt("jobs.workers")),
	)
	return srv.Router().Run(addr)
}
