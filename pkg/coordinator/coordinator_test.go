package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/morphd/pkg/config"
	"github.com/arthur-debert/morphd/pkg/engines"
	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/fileops"
	"github.com/arthur-debert/morphd/pkg/guard"
	"github.com/arthur-debert/morphd/pkg/router"
	"github.com/arthur-debert/morphd/pkg/trigger"
	"github.com/arthur-debert/morphd/pkg/versions"
)

// fakeEngine writes fixed content to the request output and records
// every request it sees.
type fakeEngine struct {
	mu       sync.Mutex
	name     string
	content  string
	failWith error
	// failRemux makes only Remux=true requests fail.
	failRemux bool
	// delay simulates a slow conversion.
	delay    time.Duration
	requests []engines.Request
	active   int32
	maxSeen  int32
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Convert(_ context.Context, req engines.Request) (engines.Outcome, error) {
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failWith != nil {
		return engines.Outcome{}, f.failWith
	}
	if f.failRemux && req.Remux {
		return engines.Outcome{}, errors.New(errors.ErrEngineTransient, "container rejected streams")
	}
	if err := os.WriteFile(req.Output, []byte(f.content), 0644); err != nil {
		return engines.Outcome{}, err
	}
	return engines.Outcome{Remuxed: req.Remux}, nil
}

func (f *fakeEngine) calls() []engines.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]engines.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// fakeNotifier records delivered notifications.
type fakeNotifier struct {
	mu       sync.Mutex
	syncing  []string
	restored []string
	failed   []string
}

func (f *fakeNotifier) Syncing(_ int, name, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncing = append(f.syncing, name)
}

func (f *fakeNotifier) Restored(_ int, name, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored = append(f.restored, name)
}

func (f *fakeNotifier) Failed(_ int, name, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, name)
}

type fixture struct {
	dir      string
	coord    *Coordinator
	store    *versions.Store
	guard    *guard.LoopGuard
	image    *fakeEngine
	media    *fakeEngine
	document *fakeEngine
	pdfSet   *fakeEngine
	folder   *fakeEngine
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	f := &fixture{
		dir:      dir,
		store:    versions.NewStore(filepath.Join(dir, "store")),
		guard:    guard.New(guard.DefaultTTL),
		image:    &fakeEngine{name: "image", content: "image-out"},
		media:    &fakeEngine{name: "media", content: "media-out"},
		document: &fakeEngine{name: "document", content: "doc-out"},
		pdfSet:   &fakeEngine{name: "pdfset"},
		folder:   &fakeEngine{name: "folder", content: "merged-pdf"},
		notifier: &fakeNotifier{},
	}

	cfg := &config.Config{}
	cfg.Convert.Workers = 2
	cfg.Convert.RasterDPI = 300
	cfg.Convert.VideoCRF = 23
	cfg.Convert.AudioQuality = 3

	set := &engines.Set{
		Image:    f.image,
		Media:    f.media,
		Document: f.document,
		PdfSet:   f.pdfSet,
		Folder:   f.folder,
	}
	f.coord = New(cfg, f.store, f.guard, set, f.notifier)
	f.coord.detect = func(_ context.Context, path string, isDir bool) (router.Source, error) {
		if isDir {
			return router.Source{Path: path, IsDir: true}, nil
		}
		switch filepath.Ext(path) {
		case ".!png", ".!!png", ".!jpg":
			return router.Source{Path: path, Mime: "image/jpeg", Ext: "jpg"}, nil
		case ".!mp4":
			return router.Source{Path: path, Mime: "video/x-matroska", Ext: "mkv"}, nil
		case ".!md":
			return router.Source{Path: path, Mime: "text/html", Ext: "html"}, nil
		default:
			return router.Source{Path: path, Mime: "application/octet-stream"}, nil
		}
	}
	return f
}

func (f *fixture) writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0640))
	return path
}

func (f *fixture) process(t *testing.T, path string) *Job {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	desc, ok := trigger.Parse(filepath.Base(path), info.IsDir())
	require.True(t, ok)
	return f.coord.Process(context.Background(), path, desc)
}

func TestProcessImageConversion(t *testing.T) {
	f := newFixture(t)
	src := f.writeSource(t, "photo.!png", "raw-jpeg-bytes")

	job := f.process(t, src)

	assert.Equal(t, StatusDone, job.Status)
	assert.NoError(t, job.Err)

	final := filepath.Join(f.dir, "photo.png")
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "image-out", string(data))

	_, err = os.Lstat(src)
	assert.True(t, os.IsNotExist(err), "bang source should be consumed")

	// Both the pre-conversion source and the produced variant are stored.
	owner, err := fileops.CaptureOwner(final)
	require.NoError(t, err)
	key := versions.IdentityKey(filepath.Join(f.dir, "photo"), owner.UID)
	entry, err := f.store.Lookup(key, "jpg", owner)
	require.NoError(t, err)
	assert.NotNil(t, entry, "source variant should be saved")
	entry, err = f.store.Lookup(key, "png", owner)
	require.NoError(t, err)
	assert.NotNil(t, entry, "produced variant should be saved")

	assert.Equal(t, 1, f.guard.Len(), "finalize should arm the loop guard")
	assert.Equal(t, []string{"photo.!png"}, f.notifier.syncing)
}

func TestProcessRestoresFromHistory(t *testing.T) {
	f := newFixture(t)
	src := f.writeSource(t, "photo.!png", "raw-jpeg-bytes")
	final := filepath.Join(f.dir, "photo.png")

	owner, err := fileops.CaptureOwner(src)
	require.NoError(t, err)
	key := versions.IdentityKey(filepath.Join(f.dir, "photo"), owner.UID)

	// Seed history with a previously produced png.
	seed := f.writeSource(t, "seed.png", "previous-png-bytes")
	_, err = f.store.Save(key, "png", seed, owner)
	require.NoError(t, err)

	job := f.process(t, src)

	assert.Equal(t, StatusDone, job.Status)
	assert.Empty(t, f.image.calls(), "restore must not invoke an engine")

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "previous-png-bytes", string(data))

	_, err = os.Lstat(src)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []string{"photo.!png"}, f.notifier.restored)
}

func TestProcessDestructiveSkipsHistory(t *testing.T) {
	f := newFixture(t)
	src := f.writeSource(t, "photo.!!png", "raw-jpeg-bytes")
	final := filepath.Join(f.dir, "photo.png")

	owner, err := fileops.CaptureOwner(src)
	require.NoError(t, err)
	key := versions.IdentityKey(filepath.Join(f.dir, "photo"), owner.UID)

	// Even with a stored variant, destructive mode converts fresh.
	seed := f.writeSource(t, "seed.png", "previous-png-bytes")
	_, err = f.store.Save(key, "png", seed, owner)
	require.NoError(t, err)

	job := f.process(t, src)

	assert.Equal(t, StatusDone, job.Status)
	assert.Len(t, f.image.calls(), 1)

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "image-out", string(data))

	// No source snapshot in destructive mode.
	entry, err := f.store.Lookup(key, "jpg", owner)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestProcessRoundTripRestoresOriginal(t *testing.T) {
	f := newFixture(t)
	f.coord.detect = func(_ context.Context, path string, _ bool) (router.Source, error) {
		if filepath.Ext(path) == ".!mkv" {
			return router.Source{Path: path, Mime: "video/mp4", Ext: "mp4"}, nil
		}
		return router.Source{Path: path, Mime: "video/x-matroska", Ext: "mkv"}, nil
	}

	src := f.writeSource(t, "clip.!mp4", "original-mkv-bytes")
	job := f.process(t, src)
	require.Equal(t, StatusDone, job.Status)
	require.Len(t, f.media.calls(), 1)

	// Send the produced mp4 back to its original container.
	back := filepath.Join(f.dir, "clip.!mkv")
	require.NoError(t, os.Rename(filepath.Join(f.dir, "clip.mp4"), back))

	job = f.process(t, back)

	assert.Equal(t, StatusDone, job.Status)
	assert.Len(t, f.media.calls(), 1, "the way back is a restore, not a conversion")

	data, err := os.ReadFile(filepath.Join(f.dir, "clip.mkv"))
	require.NoError(t, err)
	assert.Equal(t, "original-mkv-bytes", string(data), "original bytes come back")
	assert.Equal(t, []string{"clip.!mkv"}, f.notifier.restored)
}

func TestProcessDestructiveInvalidatesVariant(t *testing.T) {
	f := newFixture(t)

	src := f.writeSource(t, "photo.!png", "raw-jpeg-bytes")
	job := f.process(t, src)
	require.Equal(t, StatusDone, job.Status)

	final := filepath.Join(f.dir, "photo.png")
	owner, err := fileops.CaptureOwner(final)
	require.NoError(t, err)
	key := versions.IdentityKey(filepath.Join(f.dir, "photo"), owner.UID)
	entry, err := f.store.Lookup(key, "png", owner)
	require.NoError(t, err)
	require.NotNil(t, entry)

	// A destructive pass over the same document must drop the stored png.
	require.NoError(t, os.Rename(final, filepath.Join(f.dir, "photo.!!png")))
	job = f.process(t, filepath.Join(f.dir, "photo.!!png"))
	require.Equal(t, StatusDone, job.Status)

	entry, err = f.store.Lookup(key, "png", owner)
	require.NoError(t, err)
	assert.Nil(t, entry, "superseded variant must be invalidated")

	// A later safe trigger converts fresh instead of resurrecting it.
	require.NoError(t, os.Rename(final, src))
	job = f.process(t, src)
	require.Equal(t, StatusDone, job.Status)
	assert.Len(t, f.image.calls(), 3)
	assert.Empty(t, f.notifier.restored)
}

func TestProcessStoreFailureFailsJob(t *testing.T) {
	f := newFixture(t)

	// A regular file where the store root should be makes every save fail.
	blocker := filepath.Join(f.dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	f.coord.store = versions.NewStore(blocker)

	src := f.writeSource(t, "photo.!png", "raw-jpeg-bytes")
	job := f.process(t, src)

	assert.Equal(t, StatusFailed, job.Status)
	assert.Error(t, job.Err)
	assert.Empty(t, f.image.calls(), "conversion must not start without a snapshot")

	_, err := os.Lstat(src)
	assert.NoError(t, err, "source stays put when the snapshot fails")
	_, err = os.Lstat(filepath.Join(f.dir, "photo.png"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []string{"photo.!png"}, f.notifier.failed)
}

func TestProcessMediaRemuxFallback(t *testing.T) {
	f := newFixture(t)
	f.media.failRemux = true
	src := f.writeSource(t, "clip.!mp4", "mkv-bytes")

	job := f.process(t, src)

	assert.Equal(t, StatusDone, job.Status)
	calls := f.media.calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].Remux, "first attempt is a stream copy")
	assert.False(t, calls[1].Remux, "fallback re-encodes")

	data, err := os.ReadFile(filepath.Join(f.dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "media-out", string(data))
}

func TestProcessMediaMissingToolNotRetried(t *testing.T) {
	f := newFixture(t)
	f.media.failWith = errors.New(errors.ErrEngineUnsupported, "ffmpeg is not installed")
	src := f.writeSource(t, "clip.!mp4", "mkv-bytes")

	job := f.process(t, src)

	assert.Equal(t, StatusFailed, job.Status)
	assert.True(t, errors.IsErrorCode(job.Err, errors.ErrEngineUnsupported))
	assert.Len(t, f.media.calls(), 1, "a tool that cannot run gains nothing from a re-encode pass")

	_, err := os.Lstat(src)
	assert.NoError(t, err)
}

func TestProcessFailureLeavesSource(t *testing.T) {
	f := newFixture(t)
	f.image.failWith = errors.New(errors.ErrEngineTransient, "vips exploded")
	src := f.writeSource(t, "photo.!!png", "raw-jpeg-bytes")

	job := f.process(t, src)

	assert.Equal(t, StatusFailed, job.Status)
	assert.Error(t, job.Err)

	_, err := os.Lstat(src)
	assert.NoError(t, err, "failed job must not consume the source")
	_, err = os.Lstat(filepath.Join(f.dir, "photo.png"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, fileops.IsTempPath(e.Name()), "temp %s should be cleaned up", e.Name())
	}
	assert.Equal(t, []string{"photo.!!png"}, f.notifier.failed)
}

func TestProcessSelfProducedSkipped(t *testing.T) {
	f := newFixture(t)
	src := f.writeSource(t, "photo.!png", "just-written-by-us")

	fp, err := guard.Fingerprint(src)
	require.NoError(t, err)
	f.guard.Record(src, fp)

	job := f.process(t, src)

	assert.Equal(t, StatusDone, job.Status)
	assert.Empty(t, f.image.calls())
	_, err = os.Lstat(src)
	assert.NoError(t, err, "self-produced events leave the path alone")
}

func TestProcessMissingSourceDropped(t *testing.T) {
	f := newFixture(t)
	desc, ok := trigger.Parse("ghost.!png", false)
	require.True(t, ok)

	job := f.coord.Process(context.Background(), filepath.Join(f.dir, "ghost.!png"), desc)

	assert.Equal(t, StatusDone, job.Status)
	assert.Empty(t, f.image.calls())
}

func TestProcessPdfToImageSet(t *testing.T) {
	f := newFixture(t)
	src := f.writeSource(t, "report.!png", "pdf-bytes")
	f.coord.detect = func(_ context.Context, path string, _ bool) (router.Source, error) {
		return router.Source{Path: path, Mime: "application/pdf", Ext: "pdf", PDFPages: 3}, nil
	}
	f.coord.engines.PdfSet = engineFunc(func(_ context.Context, req engines.Request) (engines.Outcome, error) {
		require.NoError(t, os.MkdirAll(req.Output, 0755))
		for _, name := range []string{"001.png", "002.png", "003.png"} {
			require.NoError(t, os.WriteFile(filepath.Join(req.Output, name), []byte("page"), 0644))
		}
		return engines.Outcome{Pages: 3}, nil
	})

	job := f.process(t, src)

	assert.Equal(t, StatusDone, job.Status)

	finalDir := filepath.Join(f.dir, "report")
	entries, err := os.ReadDir(finalDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = os.Lstat(filepath.Join(f.dir, "report.png"))
	assert.True(t, os.IsNotExist(err), "no single file at the clean name")
	_, err = os.Lstat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessFolderToPdf(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(f.dir, "album.!pdf")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.jpg"), []byte("jpeg"), 0644))

	job := f.process(t, src)

	assert.Equal(t, StatusDone, job.Status)

	data, err := os.ReadFile(filepath.Join(f.dir, "album.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "merged-pdf", string(data))

	_, err = os.Lstat(src)
	assert.True(t, os.IsNotExist(err), "source directory is consumed")
}

func TestProcessSerializesSameFinalPath(t *testing.T) {
	f := newFixture(t)
	f.image.delay = 50 * time.Millisecond

	srcA := f.writeSource(t, "photo.!png", "one")
	srcB := f.writeSource(t, "photo.!!png", "two")

	var wg sync.WaitGroup
	for _, src := range []string{srcA, srcB} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			info, err := os.Lstat(p)
			if err != nil {
				return
			}
			desc, ok := trigger.Parse(filepath.Base(p), info.IsDir())
			if !ok {
				return
			}
			f.coord.Process(context.Background(), p, desc)
		}(src)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&f.image.maxSeen), int32(1),
		"jobs for the same final path must not overlap")
}

func TestProcessRoutingFailure(t *testing.T) {
	f := newFixture(t)
	src := f.writeSource(t, "track.!md", "html")
	f.coord.detect = func(_ context.Context, path string, _ bool) (router.Source, error) {
		return router.Source{Path: path, Mime: "audio/flac", Ext: "flac"}, nil
	}

	job := f.process(t, src)

	assert.Equal(t, StatusFailed, job.Status)
	assert.True(t, errors.IsErrorCode(job.Err, errors.ErrRoutingFailure))
	_, err := os.Lstat(src)
	assert.NoError(t, err)
}

// engineFunc adapts a function to the Engine interface.
type engineFunc func(ctx context.Context, req engines.Request) (engines.Outcome, error)

func (e engineFunc) Name() string { return "func" }
func (e engineFunc) Convert(ctx context.Context, req engines.Request) (engines.Outcome, error) {
	return e(ctx, req)
}
