// Package engines wraps the external conversion tools (vips, ffmpeg,
// pandoc, pdfunite, magick) behind a uniform interface. Engines are
// invoked against private temporary outputs; atomic placement is the
// coordinator's job.
package engines

import "context"

// Quality carries the tunable encoding defaults from configuration.
type Quality struct {
	RasterDPI    int
	VideoCRF     int
	AudioQuality int
}

// Request describes one engine invocation.
type Request struct {
	// Input is the source path (a file, or a directory for FolderToPdf).
	Input string
	// Output is the private temporary output path the engine writes to.
	// For PdfToImageSet it is a directory.
	Output string
	// TargetExt is the requested format, lower-case, no dot.
	TargetExt string
	// SourceExt is the detected source format (not the filename's).
	SourceExt string
	// Remux asks the media engine for a container-level stream copy.
	// When false the media engine re-encodes.
	Remux bool
	// Quality holds encoder tunables.
	Quality Quality
}

// Outcome reports what an engine actually did.
type Outcome struct {
	// Remuxed is true when the media engine stream-copied without
	// re-encoding.
	Remuxed bool
	// Pages is the number of files produced by PdfToImageSet.
	Pages int
}

// Engine is one conversion backend.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string
	// Convert transforms req.Input into req.Output. Errors distinguish
	// unsupported format pairs from transient spawn/IO failures via the
	// error code.
	Convert(ctx context.Context, req Request) (Outcome, error)
}

// Set bundles the engines the coordinator dispatches to.
type Set struct {
	Image    Engine
	Media    Engine
	Document Engine
	PdfSet   Engine
	Folder   Engine
}

// NewSet builds the production engine set.
func NewSet() *Set {
	return &Set{
		Image:    &ImageEngine{},
		Media:    &MediaEngine{},
		Document: &DocumentEngine{},
		PdfSet:   &PdfImageSetEngine{},
		Folder:   &FolderPdfEngine{},
	}
}
