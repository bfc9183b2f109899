// Package router decides which conversion engine serves a (source, target)
// pair. It is pure: source detection and engine invocation live elsewhere.
package router

import (
	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/logging"
)

// Choice identifies the engine or special-case handler for a job.
type Choice int

const (
	ChoiceNone Choice = iota
	ChoiceImage
	ChoiceMedia
	ChoiceDocument
	ChoicePdfToImageSet
	ChoiceFolderToPdf
)

// String returns a human-readable name for the choice.
func (c Choice) String() string {
	switch c {
	case ChoiceImage:
		return "image"
	case ChoiceMedia:
		return "media"
	case ChoiceDocument:
		return "document"
	case ChoicePdfToImageSet:
		return "pdf-to-image-set"
	case ChoiceFolderToPdf:
		return "folder-to-pdf"
	default:
		return "none"
	}
}

// Source describes a detected conversion input.
type Source struct {
	Path  string
	IsDir bool
	// Mime is the detected mime type ("" for directories).
	Mime string
	// Ext is the detected source extension, which may differ from the
	// filename's (a renamed mkv is still an mkv).
	Ext string
	// PDFPages is the page count when the source is a PDF, else 0.
	PDFPages int
}

// Family returns the source's media family.
func (s Source) Family() Family {
	if s.IsDir {
		return FamilyUnknown
	}
	return FamilyForMime(s.Mime)
}

// Route selects the engine for converting src to targetExt. Selection
// rules, in priority order: folder triggers, multi-page PDF rasterization,
// then the family table.
func Route(src Source, targetExt string) (Choice, error) {
	logger := logging.GetLogger("router")

	if src.IsDir {
		if targetExt == "pdf" {
			return ChoiceFolderToPdf, nil
		}
		return ChoiceNone, errors.Newf(errors.ErrRoutingFailure,
			"directory sources can only target pdf, not %s", targetExt)
	}

	family := src.Family()
	if family == FamilyUnknown {
		return ChoiceNone, errors.Newf(errors.ErrSourceUndetectable,
			"cannot classify source %s (mime %q)", src.Path, src.Mime)
	}

	var choice Choice
	switch family {
	case FamilyImage:
		switch {
		case src.Ext == "pdf" && src.PDFPages > 1 && targetExt != "pdf" && IsImageOutput(targetExt):
			choice = ChoicePdfToImageSet
		case IsImageOutput(targetExt):
			choice = ChoiceImage
		}
	case FamilyVideo:
		// ffmpeg handles frame extraction and gif output, so image
		// targets stay with the media engine.
		if IsMediaOutput(targetExt) || IsImageOutput(targetExt) {
			choice = ChoiceMedia
		}
	case FamilyAudio:
		if IsMediaOutput(targetExt) {
			choice = ChoiceMedia
		}
	case FamilyDocument:
		if IsDocOutput(targetExt) {
			choice = ChoiceDocument
		}
	}

	if choice == ChoiceNone {
		return ChoiceNone, errors.Newf(errors.ErrRoutingFailure,
			"no engine converts %s (%s) to %s", src.Ext, family, targetExt)
	}

	logger.Debug().
		Str("source", src.Path).
		Str("family", family.String()).
		Str("target", targetExt).
		Str("choice", choice.String()).
		Msg("routed conversion")
	return choice, nil
}
