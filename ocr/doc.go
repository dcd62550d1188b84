package ocr

// Package ocr defines the abstraction layer for plugging OCR engines (for
// example, Tesseract) into the conversion pipeline, along with the image
// preprocessing applied before recognition. The interfaces are intentionally
// small so engines can be backed by native libraries or remote APIs without
// leaking provider-specific concerns into callers.
