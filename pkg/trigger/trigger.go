// Package trigger parses bang-suffixed filenames into conversion
// descriptors. Parsing is pure: no filesystem access, no side effects.
//
// The grammar, case-insensitive on the extension only:
//
//	<base>.!<ext>   safe mode: save history, then convert (or restore)
//	<base>.!!<ext>  destructive mode: convert unconditionally, skip history
//
// <base> may itself contain dots; the last dot segment decides.
package trigger

import (
	"strings"

	"github.com/arthur-debert/morphd/pkg/router"
)

// Descriptor is a parsed trigger.
type Descriptor struct {
	// Base is the name with bang segment stripped, preserved byte-for-byte.
	Base string
	// TargetExt is the requested extension, lower-cased, no dot.
	TargetExt string
	// Destructive is true for the !! form.
	Destructive bool
	// IsDir is set by the caller from a stat result.
	IsDir bool
}

// CleanName returns the final output name for the trigger.
func (d Descriptor) CleanName() string {
	return d.Base + "." + d.TargetExt
}

// Parse classifies name. The boolean is false for anything that does not
// match the grammar exactly: no bang segment, empty base or extension, an
// extension no engine can produce, or a directory targeting anything but
// pdf. Ambiguous names are never intercepted.
func Parse(name string, isDir bool) (Descriptor, bool) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return Descriptor{}, false
	}

	seg := name[dot+1:]
	if seg[0] != '!' {
		return Descriptor{}, false
	}

	destructive := false
	ext := seg[1:]
	if strings.HasPrefix(ext, "!") {
		destructive = true
		ext = ext[1:]
	}
	if ext == "" || strings.HasPrefix(ext, "!") {
		return Descriptor{}, false
	}

	ext = strings.ToLower(ext)
	if !router.KnownTarget(ext) {
		return Descriptor{}, false
	}
	if isDir && ext != "pdf" {
		return Descriptor{}, false
	}

	return Descriptor{
		Base:        name[:dot],
		TargetExt:   ext,
		Destructive: destructive,
		IsDir:       isDir,
	}, true
}
