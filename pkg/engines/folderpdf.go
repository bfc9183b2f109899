package engines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/fileops"
	"github.com/arthur-debert/morphd/pkg/logging"
	"github.com/arthur-debert/morphd/pkg/router"
)

// FolderPdfEngine merges a directory's supported children into a single
// PDF. Entries are taken in natural filename order (2.png before 10.png);
// unsupported entries are skipped, not fatal.
type FolderPdfEngine struct{}

// Name identifies the engine in logs.
func (e *FolderPdfEngine) Name() string { return "folder-to-pdf" }

// Convert renders each supported immediate child of req.Input to a
// single-page PDF in a scratch directory, then merges them with pdfunite
// into req.Output.
func (e *FolderPdfEngine) Convert(ctx context.Context, req Request) (Outcome, error) {
	logger := logging.GetLogger("engines.folderpdf")

	inputs, err := gatherFolderInputs(ctx, req.Input)
	if err != nil {
		return Outcome{}, err
	}
	if len(inputs) == 0 {
		return Outcome{}, errors.Newf(errors.ErrRoutingFailure,
			"directory %s has no convertible entries", req.Input)
	}

	scratch := fileops.TempDirPath(strings.TrimSuffix(req.Output, filepath.Ext(req.Output)))
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return Outcome{}, errors.Wrapf(err, errors.ErrDirCreate,
			"failed to create scratch directory %s", scratch)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	var pages []string
	for i, input := range inputs {
		page := filepath.Join(scratch, fmt.Sprintf("%04d.pdf", i+1))
		if err := e.renderPage(ctx, input, page); err != nil {
			logger.Warn().Err(err).Str("entry", input.Path).Msg("skipping entry that failed to render")
			continue
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		return Outcome{}, errors.Newf(errors.ErrEngineTransient,
			"no entries of %s could be rendered", req.Input)
	}

	args := append(pages, req.Output)
	if err := run(ctx, "engines.folderpdf", "pdfunite", args...); err != nil {
		return Outcome{}, err
	}
	return Outcome{Pages: len(pages)}, nil
}

// renderPage converts one directory entry to a single-page pdf.
func (e *FolderPdfEngine) renderPage(ctx context.Context, input router.Source, page string) error {
	if strings.HasPrefix(input.Mime, "image/") {
		return run(ctx, "engines.folderpdf", "magick", input.Path, page)
	}
	return run(ctx, "engines.folderpdf", "pandoc",
		"-f", PandocReader(input.Ext), input.Path,
		"-s", "--pdf-engine=xelatex", "-o", page)
}

// gatherFolderInputs lists the immediate children whose detected kind is
// in the supported image/document set, in natural name order.
func gatherFolderInputs(ctx context.Context, dir string) ([]router.Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read directory %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	router.SortNatural(names)

	var inputs []router.Source
	for _, name := range names {
		path := filepath.Join(dir, name)
		src, err := DetectSource(ctx, path, false)
		if err != nil {
			continue
		}
		if strings.HasPrefix(src.Mime, "image/") || router.IsDocFolderInput(src.Ext) {
			inputs = append(inputs, src)
		}
	}
	return inputs, nil
}
