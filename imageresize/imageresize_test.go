package imageresize

import (
	"image"
	"image/jpeg"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestJPEG writes a w x h jpeg to dir and returns its path.
func writeTestJPEG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	fn := filepath.Join(dir, "poster.jpg")
	fh, err := os.Create(fn)
	require.NoError(t, err)
	defer fh.Close()
	require.NoError(t, jpeg.Encode(fh, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return fn
}

func openResized(t *testing.T, r *Resizer, name, query string) image.Image {
	t.Helper()
	rq := httptest.NewRequest("GET", "/posters/poster.jpg"+query, nil)
	file, err := r.OpenFile(httptest.NewRecorder(), rq, name)
	require.NoError(t, err)
	defer file.Close()

	img, _, err := image.Decode(file)
	require.NoError(t, err)
	return img
}

func TestOpenFileServesOriginalWithoutParams(t *testing.T) {
	t.Parallel()
	r := New(Options{Quality: 85})
	fn := writeTestJPEG(t, t.TempDir(), 64, 32)

	img := openResized(t, r, fn, "")
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestOpenFileResizesPreservingAspect(t *testing.T) {
	t.Parallel()
	r := New(Options{Quality: 85})
	fn := writeTestJPEG(t, t.TempDir(), 64, 32)

	img := openResized(t, r, fn, "?w=16&h=16")
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	// a single dimension acts as a bound
	img = openResized(t, r, fn, "?h=16")
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestOpenFileCachesRendition(t *testing.T) {
	t.Parallel()
	cachedir := t.TempDir()
	r := New(Options{Cachedir: cachedir, Quality: 85})
	fn := writeTestJPEG(t, t.TempDir(), 64, 32)

	openResized(t, r, fn, "?w=16")
	entries, err := os.ReadDir(cachedir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// second request is served from the cache
	img := openResized(t, r, fn, "?w=16")
	assert.Equal(t, 16, img.Bounds().Dx())
	entries, err = os.ReadDir(cachedir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// minimalWebP is an 8x8 all-black lossless webp, small enough to inline.
var minimalWebP = []byte{
	0x52, 0x49, 0x46, 0x46, 0x16, 0x00, 0x00, 0x00, 0x57, 0x45,
	0x42, 0x50, 0x56, 0x50, 0x38, 0x4c, 0x09, 0x00, 0x00, 0x00,
	0x2f, 0x07, 0xc0, 0x01, 0x00, 0x88, 0x88, 0xfe, 0x07, 0x00,
}

func TestOpenFileResizesWebP(t *testing.T) {
	t.Parallel()
	r := New(Options{Quality: 85})

	fn := filepath.Join(t.TempDir(), "poster.webp")
	require.NoError(t, os.WriteFile(fn, minimalWebP, 0644))

	rq := httptest.NewRequest("GET", "/posters/poster.webp?w=4", nil)
	file, err := r.OpenFile(httptest.NewRecorder(), rq, fn)
	require.NoError(t, err)
	defer file.Close()

	// the rendition is a downscaled re-encode, not the original webp bytes
	img, format, err := image.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestOpenFilePassesThroughNonImages(t *testing.T) {
	t.Parallel()
	r := New(Options{Quality: 85})

	fn := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(fn, []byte("plain text"), 0644))

	rq := httptest.NewRequest("GET", "/posters/notes.txt?w=16", nil)
	file, err := r.OpenFile(httptest.NewRecorder(), rq, fn)
	require.NoError(t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(content))
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	t.Parallel()
	cachedir := t.TempDir()
	r := New(Options{Cachedir: cachedir, Quality: 85})

	stale := filepath.Join(cachedir, "stale")
	fresh := filepath.Join(cachedir, "fresh")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	r.sweepOnce(24 * time.Hour)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
