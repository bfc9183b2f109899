package router

import "strings"

// Family classifies a source or target by media kind. Routing never
// crosses families implicitly; a mismatch is a routing failure.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyImage
	FamilyVideo
	FamilyAudio
	FamilyDocument
)

// String returns a human-readable name for the family.
func (f Family) String() string {
	switch f {
	case FamilyImage:
		return "image"
	case FamilyVideo:
		return "video"
	case FamilyAudio:
		return "audio"
	case FamilyDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Extension tables are kept as data rather than branching logic so that
// routing decisions stay in one place.

var imageOutputs = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "jpe": true, "jfif": true,
	"webp": true, "avif": true, "heic": true, "heif": true,
	"tiff": true, "tif": true, "gif": true, "jxl": true,
	"jp2": true, "j2k": true, "jpc": true, "jpt": true, "j2c": true,
	"hdr": true, "ppm": true, "pgm": true, "pbm": true, "pfm": true,
	"pnm": true, "fits": true, "fit": true, "fts": true,
	"bmp": true, "ico": true, "psd": true, "tga": true, "pcx": true,
	"pdf": true, "eps": true, "dds": true,
}

var mediaOutputs = map[string]bool{
	"mp4": true, "mkv": true, "mov": true, "avi": true,
	"mp3": true, "wav": true, "flac": true, "ogg": true,
	"m4a": true, "aac": true, "webm": true, "opus": true,
	"m4v": true, "ts": true, "mts": true, "flv": true, "gif": true,
	"mpg": true, "mpeg": true, "vob": true, "ogv": true, "oga": true,
	"wv": true, "ac3": true, "dts": true, "aiff": true, "au": true,
	"amr": true, "3gp": true, "3g2": true, "mka": true, "mxf": true,
	"asf": true, "wmv": true, "rm": true, "rmvb": true,
	"adts": true, "spx": true,
}

var docOutputs = map[string]bool{
	"md": true, "markdown": true, "txt": true, "html": true, "htm": true,
	"docx": true, "odt": true, "epub": true, "latex": true, "tex": true,
	"rst": true, "rtf": true, "org": true, "wiki": true, "textile": true,
	"fb2": true, "ipynb": true, "jira": true, "opml": true, "json": true,
	"typst": true, "djot": true, "man": true, "pdf": true, "pptx": true,
	"beamer": true, "icml": true, "tei": true, "texinfo": true,
	"context": true, "ms": true, "adoc": true, "asciidoc": true,
}

// docFolderInputs is the subset of document extensions accepted as
// immediate children of a folder-to-pdf trigger.
var docFolderInputs = map[string]bool{
	"md": true, "txt": true, "html": true, "htm": true, "docx": true,
	"odt": true, "epub": true, "tex": true, "rst": true, "rtf": true,
	"org": true, "textile": true, "ipynb": true, "typst": true,
}

// IsImageOutput reports whether ext is a supported image target.
func IsImageOutput(ext string) bool { return imageOutputs[ext] }

// IsMediaOutput reports whether ext is a supported audio/video target.
func IsMediaOutput(ext string) bool { return mediaOutputs[ext] }

// IsDocOutput reports whether ext is a supported document target.
func IsDocOutput(ext string) bool { return docOutputs[ext] }

// IsDocFolderInput reports whether ext is accepted inside a folder trigger.
func IsDocFolderInput(ext string) bool { return docFolderInputs[ext] }

// KnownTarget reports whether any engine can produce ext at all. Names
// whose target extension fails this check never classify as triggers.
func KnownTarget(ext string) bool {
	return imageOutputs[ext] || mediaOutputs[ext] || docOutputs[ext]
}

// FamilyForMime maps a detected mime type to a source family.
// PDF and PostScript sit in the image family because the image engine
// rasterizes them.
func FamilyForMime(mime string) Family {
	switch {
	case mime == "application/pdf", mime == "application/postscript":
		return FamilyImage
	case strings.HasPrefix(mime, "image/"):
		return FamilyImage
	case strings.HasPrefix(mime, "video/"):
		return FamilyVideo
	case strings.HasPrefix(mime, "audio/"):
		return FamilyAudio
	case strings.HasPrefix(mime, "text/"),
		strings.Contains(mime, "officedocument"),
		mime == "application/vnd.oasis.opendocument.text",
		strings.HasPrefix(mime, "application/epub"),
		mime == "application/rtf",
		mime == "application/json":
		return FamilyDocument
	default:
		return FamilyUnknown
	}
}

// ExtForMime is the fallback source-extension guess when file(1) cannot
// name one.
func ExtForMime(mime string) string {
	switch {
	case mime == "application/pdf":
		return "pdf"
	case strings.HasPrefix(mime, "image/"):
		return "png"
	case strings.HasPrefix(mime, "video/"):
		return "mp4"
	case strings.HasPrefix(mime, "audio/"):
		return "mp3"
	case strings.Contains(mime, "officedocument.wordprocessingml.document"):
		return "docx"
	case mime == "application/vnd.oasis.opendocument.text":
		return "odt"
	case strings.HasPrefix(mime, "application/epub"):
		return "epub"
	case mime == "text/html":
		return "html"
	case strings.HasPrefix(mime, "text/"):
		return "md"
	case mime == "application/rtf":
		return "rtf"
	case mime == "application/json":
		return "json"
	default:
		return ""
	}
}
