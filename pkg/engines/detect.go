package engines

import (
	"context"
	"strconv"
	"strings"

	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/router"
)

// DetectSource inspects a conversion input with file(1). Detection looks
// at content, not the filename: a renamed mkv is still an mkv.
func DetectSource(ctx context.Context, path string, isDir bool) (router.Source, error) {
	if isDir {
		return router.Source{Path: path, IsDir: true}, nil
	}

	mime, err := output(ctx, "engines.detect", "file", "--mime-type", "-b", path)
	if err != nil {
		return router.Source{}, errors.Wrapf(err, errors.ErrSourceUndetectable,
			"mime detection failed for %s", path)
	}

	src := router.Source{
		Path: path,
		Mime: mime,
		Ext:  detectSourceExt(ctx, path, mime),
	}

	if mime == "application/pdf" {
		src.PDFPages = pdfPages(ctx, path)
	}
	return src, nil
}

// detectSourceExt asks file(1) for a canonical extension, falling back to
// a mime-derived guess. file prints slash-separated alternatives
// ("jpeg/jpg/jpe/jfif"); the first wins.
func detectSourceExt(ctx context.Context, path, mime string) string {
	out, err := output(ctx, "engines.detect", "file", "--extension", "-b", path)
	if err == nil && out != "" && out != "???" {
		ext := strings.SplitN(out, "/", 2)[0]
		ext = strings.TrimSuffix(ext, "?")
		if ext != "" && ext != "???" {
			return strings.ToLower(ext)
		}
	}
	return router.ExtForMime(mime)
}

// pdfPages returns the page count per pdfinfo, or 1 when it cannot tell.
func pdfPages(ctx context.Context, path string) int {
	out, err := output(ctx, "engines.detect", "pdfinfo", path)
	if err != nil {
		return 1
	}
	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(line, "Pages:")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
