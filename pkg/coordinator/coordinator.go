// Package coordinator owns the conversion job lifecycle: it takes
// accepted triggers, consults the loop guard and version store, drives
// the engines against private temporary outputs, and finalizes with an
// atomic rename that preserves the source's ownership.
package coordinator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/arthur-debert/morphd/pkg/config"
	"github.com/arthur-debert/morphd/pkg/engines"
	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/fileops"
	"github.com/arthur-debert/morphd/pkg/guard"
	"github.com/arthur-debert/morphd/pkg/logging"
	"github.com/arthur-debert/morphd/pkg/notify"
	"github.com/arthur-debert/morphd/pkg/router"
	"github.com/arthur-debert/morphd/pkg/trigger"
	"github.com/arthur-debert/morphd/pkg/versions"
)

// Coordinator is safe for concurrent use; Process is called by every
// pool worker.
type Coordinator struct {
	cfg      *config.Config
	store    *versions.Store
	guard    *guard.LoopGuard
	engines  *engines.Set
	notifier notify.Notifier
	locks    *keyedLocks

	// Test seams. Production values shell out to file(1) and read real
	// content.
	detect      func(ctx context.Context, path string, isDir bool) (router.Source, error)
	fingerprint func(path string) (uint64, error)
}

// New wires a coordinator from its collaborators.
func New(cfg *config.Config, store *versions.Store, g *guard.LoopGuard, set *engines.Set, notifier notify.Notifier) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		store:       store,
		guard:       g,
		engines:     set,
		notifier:    notifier,
		locks:       newKeyedLocks(),
		detect:      engines.DetectSource,
		fingerprint: guard.Fingerprint,
	}
}

// Process runs one trigger to completion and returns the finished job.
// Jobs targeting the same final path are serialized; everything else
// runs concurrently. A failed job leaves the bang-named source exactly
// where it was.
func (c *Coordinator) Process(ctx context.Context, sourcePath string, desc trigger.Descriptor) *Job {
	logger := logging.GetLogger("coordinator")

	finalPath := filepath.Join(filepath.Dir(sourcePath), desc.CleanName())
	job := newJob(sourcePath, finalPath, desc)

	release := c.locks.acquire(finalPath)
	defer release()

	logger.Info().
		Str("job", job.ID).
		Str("source", sourcePath).
		Str("target", desc.TargetExt).
		Bool("destructive", desc.Destructive).
		Msg("job accepted")

	// The source can vanish between event and dispatch: a queued job for
	// the same target may have consumed it, or the user renamed it back.
	if _, err := os.Lstat(sourcePath); err != nil {
		logger.Debug().Str("source", sourcePath).Msg("source gone, dropping job")
		job.Status = StatusDone
		return job
	}

	if !desc.IsDir {
		if fp, err := c.fingerprint(sourcePath); err == nil && c.guard.IsSelfProduced(sourcePath, fp) {
			job.Status = StatusDone
			return job
		}
	}

	owner, err := fileops.CaptureOwner(sourcePath)
	if err != nil {
		return c.fail(job, 0, err)
	}

	// All format variants of one logical document share a key, so the
	// derivation excludes the target extension.
	key := versions.IdentityKey(filepath.Join(filepath.Dir(finalPath), desc.Base), owner.UID)

	src, err := c.detect(ctx, sourcePath, desc.IsDir)
	if err != nil {
		return c.fail(job, owner.UID, err)
	}

	if !desc.Destructive {
		if err := c.saveSource(key, src, owner); err != nil {
			return c.fail(job, owner.UID, err)
		}

		entry, err := c.store.Lookup(key, desc.TargetExt, owner)
		if err != nil {
			return c.fail(job, owner.UID, err)
		}
		if entry != nil {
			return c.restore(job, entry, owner)
		}
	}

	choice, err := router.Route(src, desc.TargetExt)
	if err != nil {
		return c.fail(job, owner.UID, err)
	}

	job.Status = StatusConverting
	c.notifier.Syncing(owner.UID, filepath.Base(sourcePath), desc.TargetExt)

	switch choice {
	case router.ChoicePdfToImageSet:
		return c.convertToImageSet(ctx, job, src, owner)
	case router.ChoiceFolderToPdf:
		return c.convertFolder(ctx, job, src, owner, key)
	default:
		return c.convertFile(ctx, job, choice, src, owner, key)
	}
}

// saveSource snapshots the pre-conversion source so safe-mode triggers
// stay reversible. A store failure fails the job: converting anyway
// would consume the user's only recoverable copy.
func (c *Coordinator) saveSource(key string, src router.Source, owner fileops.Owner) error {
	if src.IsDir {
		_, err := c.store.SaveDir(key, src.Path, owner)
		return err
	}
	ext := src.Ext
	if ext == "" {
		ext = "bin"
	}
	_, err := c.store.Save(key, ext, src.Path, owner)
	return err
}

// restore places a stored variant at the final path instead of
// converting.
func (c *Coordinator) restore(job *Job, entry *versions.Entry, owner fileops.Owner) *Job {
	job.Status = StatusRestoring

	if err := c.store.Restore(entry, job.FinalPath); err != nil {
		return c.fail(job, owner.UID, err)
	}
	c.removeSource(job)
	c.recordProduced(job.FinalPath)
	c.notifier.Restored(owner.UID, filepath.Base(job.SourcePath), job.Trigger.TargetExt)
	job.Status = StatusDone
	return job
}

// convertFile handles the single-file engines: image, media, document.
func (c *Coordinator) convertFile(ctx context.Context, job *Job, choice router.Choice, src router.Source, owner fileops.Owner, key string) *Job {
	tmp := fileops.TempOutputPath(job.SourcePath, job.Trigger.TargetExt)
	req := engines.Request{
		Input:     job.SourcePath,
		Output:    tmp,
		TargetExt: job.Trigger.TargetExt,
		SourceExt: src.Ext,
		Quality:   c.quality(),
	}

	var err error
	switch choice {
	case router.ChoiceImage:
		_, err = c.engines.Image.Convert(ctx, req)
	case router.ChoiceMedia:
		// Try a container-level stream copy first; re-encode exactly
		// once when the target container rejects the streams. A tool
		// that could not even run is not retried.
		req.Remux = true
		if _, err = c.engines.Media.Convert(ctx, req); err != nil && errors.IsTransient(err) {
			_ = os.Remove(tmp)
			req.Remux = false
			_, err = c.engines.Media.Convert(ctx, req)
		}
	case router.ChoiceDocument:
		_, err = c.engines.Document.Convert(ctx, req)
	default:
		err = errors.Newf(errors.ErrRoutingFailure, "no file engine for choice %s", choice)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return c.fail(job, owner.UID, err)
	}

	return c.finalizeFile(job, tmp, owner, key)
}

// convertToImageSet rasterizes a multi-page PDF into a directory of
// page images named after the trigger's base. No file is ever created
// at the clean single-file name.
func (c *Coordinator) convertToImageSet(ctx context.Context, job *Job, src router.Source, owner fileops.Owner) *Job {
	finalDir := filepath.Join(filepath.Dir(job.SourcePath), job.Trigger.Base)
	tmpDir := fileops.TempDirPath(finalDir)

	req := engines.Request{
		Input:     job.SourcePath,
		Output:    tmpDir,
		TargetExt: job.Trigger.TargetExt,
		SourceExt: src.Ext,
		Quality:   c.quality(),
	}
	outcome, err := c.engines.PdfSet.Convert(ctx, req)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return c.fail(job, owner.UID, err)
	}

	job.Status = StatusFinalizing
	if err := applyOwnerToTree(tmpDir, owner); err != nil {
		_ = os.RemoveAll(tmpDir)
		return c.fail(job, owner.UID, err)
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return c.fail(job, owner.UID, errors.Wrapf(err, errors.ErrFinalizeRename,
			"failed to move page set into place at %s", finalDir))
	}
	c.removeSource(job)

	logger := logging.GetLogger("coordinator")
	logger.Info().
		Str("job", job.ID).
		Str("directory", finalDir).
		Int("pages", outcome.Pages).
		Msg("rasterized page set")
	job.Status = StatusDone
	return job
}

// convertFolder merges a directory's renderable contents into one PDF.
func (c *Coordinator) convertFolder(ctx context.Context, job *Job, src router.Source, owner fileops.Owner, key string) *Job {
	tmp := fileops.TempOutputPath(job.SourcePath, "pdf")
	req := engines.Request{
		Input:     job.SourcePath,
		Output:    tmp,
		TargetExt: "pdf",
		SourceExt: src.Ext,
		Quality:   c.quality(),
	}
	if _, err := c.engines.Folder.Convert(ctx, req); err != nil {
		_ = os.Remove(tmp)
		return c.fail(job, owner.UID, err)
	}

	// Directory mode bits would leave the PDF executable.
	owner.Mode = 0644
	return c.finalizeFile(job, tmp, owner, key)
}

// finalizeFile applies ownership, moves the temp into place, updates
// the store, removes the bang source and arms the loop guard. Ordering
// matters: the store update happens after the rename so it reflects
// exactly what landed. Safe mode persists the produced variant;
// destructive mode invalidates the now-superseded one instead.
func (c *Coordinator) finalizeFile(job *Job, tmp string, owner fileops.Owner, key string) *Job {
	logger := logging.GetLogger("coordinator")
	job.Status = StatusFinalizing

	if err := owner.Apply(tmp); err != nil {
		_ = os.Remove(tmp)
		return c.fail(job, owner.UID, err)
	}
	if err := fileops.ReplaceFile(tmp, job.FinalPath); err != nil {
		_ = os.Remove(tmp)
		return c.fail(job, owner.UID, err)
	}

	if job.Trigger.Destructive {
		if err := c.store.Invalidate(key, job.Trigger.TargetExt, owner); err != nil {
			logger.Warn().Err(err).
				Str("path", job.FinalPath).Msg("failed to invalidate superseded variant")
		}
	} else {
		if _, err := c.store.Save(key, job.Trigger.TargetExt, job.FinalPath, owner); err != nil {
			logger.Warn().Err(err).
				Str("path", job.FinalPath).Msg("failed to save produced variant")
		}
	}

	c.removeSource(job)
	c.recordProduced(job.FinalPath)

	logger.Info().
		Str("job", job.ID).
		Str("final", job.FinalPath).
		Msg("conversion finalized")
	job.Status = StatusDone
	return job
}

func (c *Coordinator) removeSource(job *Job) {
	var err error
	if job.Trigger.IsDir {
		err = os.RemoveAll(job.SourcePath)
	} else {
		err = os.Remove(job.SourcePath)
	}
	if err != nil && !os.IsNotExist(err) {
		logger := logging.GetLogger("coordinator")
		logger.Warn().Err(err).
			Str("source", job.SourcePath).Msg("failed to remove trigger source")
	}
}

func (c *Coordinator) recordProduced(path string) {
	fp, err := c.fingerprint(path)
	if err != nil {
		return
	}
	c.guard.Record(path, fp)
}

func (c *Coordinator) fail(job *Job, uid int, err error) *Job {
	job.Status = StatusFailed
	job.Err = err
	logger := logging.GetLogger("coordinator")
	logger.Error().Err(err).
		Str("job", job.ID).
		Str("source", job.SourcePath).
		Str("code", string(errors.GetErrorCode(err))).
		Msg("job failed")
	c.notifier.Failed(uid, filepath.Base(job.SourcePath), err.Error())
	return job
}

func (c *Coordinator) quality() engines.Quality {
	return engines.Quality{
		RasterDPI:    c.cfg.Convert.RasterDPI,
		VideoCRF:     c.cfg.Convert.VideoCRF,
		AudioQuality: c.cfg.Convert.AudioQuality,
	}
}

// applyOwnerToTree hands a produced directory and its contents to the
// owner. The directory keeps traversal bits; files get the captured
// mode.
func applyOwnerToTree(dir string, owner fileops.Owner) error {
	if err := os.Chown(dir, owner.UID, owner.GID); err != nil {
		return errors.Wrapf(err, errors.ErrMetadataPreserve,
			"failed to set ownership on %s", dir)
	}
	if err := os.Chmod(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrMetadataPreserve,
			"failed to set mode on %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to list %s", dir)
	}
	for _, entry := range entries {
		if err := owner.Apply(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
