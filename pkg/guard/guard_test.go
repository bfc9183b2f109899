package guard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndConsume(t *testing.T) {
	g := New(2 * time.Second)

	g.Record("/home/u/a.png", 42)

	assert.True(t, g.IsSelfProduced("/home/u/a.png", 42))
	// Consumed: the second check sees nothing.
	assert.False(t, g.IsSelfProduced("/home/u/a.png", 42))
}

func TestMismatchedFingerprintNotConsumed(t *testing.T) {
	g := New(2 * time.Second)

	g.Record("/home/u/a.png", 42)

	assert.False(t, g.IsSelfProduced("/home/u/a.png", 99))
	// The record survives a mismatch.
	assert.True(t, g.IsSelfProduced("/home/u/a.png", 42))
}

func TestUnknownPath(t *testing.T) {
	g := New(2 * time.Second)
	assert.False(t, g.IsSelfProduced("/home/u/never-seen.png", 1))
}

func TestExpiry(t *testing.T) {
	g := New(2 * time.Second)
	current := time.Now()
	g.now = func() time.Time { return current }

	g.Record("/home/u/a.png", 42)

	current = current.Add(3 * time.Second)
	assert.False(t, g.IsSelfProduced("/home/u/a.png", 42))
	assert.Equal(t, 0, g.Len())
}

func TestPrune(t *testing.T) {
	g := New(2 * time.Second)
	current := time.Now()
	g.now = func() time.Time { return current }

	g.Record("/home/u/a.png", 1)
	g.Record("/home/u/b.png", 2)
	current = current.Add(time.Second)
	g.Record("/home/u/c.png", 3)
	current = current.Add(1500 * time.Millisecond)

	g.Prune()

	assert.Equal(t, 1, g.Len())
	assert.True(t, g.IsSelfProduced("/home/u/c.png", 3))
}

func TestFingerprintDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(a, []byte("identical content"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("identical content"), 0644))

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	// Two independent writes of identical bytes always match.
	assert.Equal(t, fa, fb)
}

func TestFingerprintLengthMatters(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short.bin")
	long := filepath.Join(dir, "long.bin")

	// Same leading window, different total length.
	prefix := make([]byte, fingerprintWindow)
	require.NoError(t, os.WriteFile(short, prefix, 0644))
	require.NoError(t, os.WriteFile(long, append(prefix, 'x'), 0644))

	fs, err := Fingerprint(short)
	require.NoError(t, err)
	fl, err := Fingerprint(long)
	require.NoError(t, err)

	assert.NotEqual(t, fs, fl)
}

func TestFingerprintMissingFile(t *testing.T) {
	_, err := Fingerprint(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
