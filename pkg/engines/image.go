package engines

import (
	"context"
	"fmt"
)

// vectorSources need a density hint or vips rasterizes them tiny.
var vectorSources = map[string]bool{
	"svg": true, "svgz": true, "eps": true, "ai": true, "pdf": true,
}

// ImageEngine converts still images through vips.
type ImageEngine struct{}

// Name identifies the engine in logs.
func (e *ImageEngine) Name() string { return "image" }

// Convert runs a vips copy. Vector sources get a dpi/scale input
// modifier first; if that fails the plain form is tried once, since some
// loaders reject the modifier syntax.
func (e *ImageEngine) Convert(ctx context.Context, req Request) (Outcome, error) {
	if vectorSources[req.SourceExt] {
		in := fmt.Sprintf("%s[dpi=%d,scale=2]", req.Input, req.Quality.RasterDPI)
		if err := run(ctx, "engines.image", "vips", "copy", in, req.Output); err == nil {
			return Outcome{}, nil
		}
	}
	if err := run(ctx, "engines.image", "vips", "copy", req.Input, req.Output); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}
