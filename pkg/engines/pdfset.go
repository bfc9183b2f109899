package engines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/logging"
)

// PdfImageSetEngine rasterizes each page of a multi-page PDF into a
// directory of numbered images: 001.png, 002.png, ... Zero padding keeps
// lexicographic order equal to page order.
type PdfImageSetEngine struct{}

// Name identifies the engine in logs.
func (e *PdfImageSetEngine) Name() string { return "pdf-to-image-set" }

// Convert writes one image per page into req.Output, which must be a
// directory the coordinator created. A page that fails to rasterize is
// logged and skipped; the job fails only when no page succeeds.
func (e *PdfImageSetEngine) Convert(ctx context.Context, req Request) (Outcome, error) {
	logger := logging.GetLogger("engines.pdfset")

	pages := pdfPages(ctx, req.Input)
	if err := os.MkdirAll(req.Output, 0755); err != nil {
		return Outcome{}, errors.Wrapf(err, errors.ErrDirCreate,
			"failed to create page directory %s", req.Output)
	}

	written := 0
	for i := 0; i < pages; i++ {
		page := filepath.Join(req.Output, fmt.Sprintf("%03d.%s", i+1, req.TargetExt))
		in := fmt.Sprintf("%s[dpi=%d,page=%d]", req.Input, req.Quality.RasterDPI, i)
		if err := run(ctx, "engines.pdfset", "vips", "copy", in, page); err != nil {
			logger.Warn().Err(err).Int("page", i+1).Str("pdf", req.Input).Msg("page rasterization failed")
			continue
		}
		written++
	}

	if written == 0 {
		return Outcome{}, errors.Newf(errors.ErrEngineTransient,
			"no pages of %s could be rasterized", req.Input)
	}
	return Outcome{Pages: written}, nil
}
