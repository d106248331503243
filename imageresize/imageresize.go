// Package imageresize serves poster images scaled to a requested size,
// with resized results cached on disk.
package imageresize

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	// webp posters are decode-only, resized renditions are re-encoded as jpeg.
	_ "golang.org/x/image/webp"
)

type Options struct {
	// Cachedir holds resized copies, empty disables caching.
	Cachedir string
	// Quality is the default JPEG quality when the request has no q param.
	Quality int
}

type Resizer struct {
	cachedir           string
	quality            int
	tmpExt             string
	resizeMutexMap     map[string]*sync.Mutex
	resizeMutexMapLock sync.Mutex
}

func New(o Options) *Resizer {
	return &Resizer{
		cachedir:       o.Cachedir,
		quality:        o.Quality,
		resizeMutexMap: make(map[string]*sync.Mutex),
		tmpExt:         fmt.Sprintf(".%d", os.Getpid()),
	}
}

var isImg = regexp.MustCompile(`\.(png|jpg|jpeg|webp)$`)

func paramUint(params url.Values, name string) uint {
	v, _ := strconv.ParseUint(params.Get(name), 10, 32)
	return uint(v)
}

// cacheName keys a source file by device and inode so renames and
// re-uploads under the same name invalidate naturally.
func cacheName(file http.File) string {
	fi, err := file.Stat()
	if err != nil {
		return ""
	}
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%08x.%016x", stat.Dev, stat.Ino)
}

// cacheRead returns the cached resized file if present.
func (r *Resizer) cacheRead(file http.File, w, h, q uint) http.File {
	if r.cachedir == "" {
		return nil
	}
	cn := cacheName(file)
	if cn == "" {
		return nil
	}
	fn := fmt.Sprintf("%s/%s:%dx%dq=%d", r.cachedir, cn, w, h, q)
	cached, err := os.Open(fn)
	if err != nil {
		return nil
	}
	return cached
}

// cacheWrite stores a resized blob in the cache and returns a handle to it.
func (r *Resizer) cacheWrite(file http.File, blob []byte, w, h, q uint) http.File {
	if r.cachedir == "" {
		return nil
	}
	cn := cacheName(file)
	if cn == "" {
		return nil
	}
	fn := fmt.Sprintf("%s/%s:%dx%dq=%d", r.cachedir, cn, w, h, q)
	tmp := fn + r.tmpExt
	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0666)
	if err != nil {
		return nil
	}
	if _, err = fh.Write(blob); err != nil {
		fh.Close()
		os.Remove(tmp)
		return nil
	}
	if err = os.Rename(tmp, fn); err != nil {
		fh.Close()
		os.Remove(tmp)
		return nil
	}
	fh.Seek(0, 0)
	return fh
}

// OpenFile opens name and, when the request carries w/h/q parameters,
// returns a handle to a resized rendition instead of the original.
func (r *Resizer) OpenFile(rw http.ResponseWriter, rq *http.Request, name string) (http.File, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	// only plain files.
	fi, err := file.Stat()
	if err != nil || fi.IsDir() {
		return file, nil
	}

	// is it a supported image type.
	s := isImg.FindStringSubmatch(name)
	if len(s) == 0 {
		return file, nil
	}
	ctype := s[1]
	if ctype == "jpeg" {
		ctype = "jpg"
	}
	rw.Header().Set("Content-Type", "image/"+ctype)

	if rq.Method != "GET" {
		return file, nil
	}

	params := rq.URL.Query()
	w := paramUint(params, "w")
	h := paramUint(params, "h")
	q := paramUint(params, "q")
	if q == 0 {
		q = uint(r.quality)
	}
	if w == 0 && h == 0 {
		return file, nil
	}

	if cached := r.cacheRead(file, w, h, q); cached != nil {
		file.Close()
		return cached, nil
	}

	// One resize of the same source at a time, concurrent requests for a
	// fresh poster wait instead of decoding it n times.
	r.resizeMutexMapLock.Lock()
	m, ok := r.resizeMutexMap[name]
	if !ok {
		m = &sync.Mutex{}
		r.resizeMutexMap[name] = m
	}
	r.resizeMutexMapLock.Unlock()
	m.Lock()
	defer m.Unlock()

	if cached := r.cacheRead(file, w, h, q); cached != nil {
		file.Close()
		return cached, nil
	}

	img, _, err := image.Decode(file)
	file.Seek(0, 0)
	if err != nil {
		return file, nil
	}

	// Fit preserves aspect ratio, a single dimension acts as a bound.
	bw, bh := int(w), int(h)
	if bw == 0 {
		bw = img.Bounds().Dx()
	}
	if bh == 0 {
		bh = img.Bounds().Dy()
	}
	img = imaging.Fit(img, bw, bh, imaging.Lanczos)

	var buf bytes.Buffer
	switch ctype {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(q)})
		rw.Header().Set("Content-Type", "image/jpg")
	}
	if err != nil {
		return file, nil
	}

	if cached := r.cacheWrite(file, buf.Bytes(), w, h, q); cached != nil {
		file.Close()
		return cached, nil
	}

	// no cache dir, serve the in-memory rendition.
	blob := newBlobFile(buf.Bytes(), fi, filepath.Base(name))
	file.Close()
	return blob, nil
}

// SweepCache starts a loop removing cached renditions not read for maxAge.
// Runs until the process exits.
func (r *Resizer) SweepCache(interval, maxAge time.Duration) {
	if r.cachedir == "" {
		return
	}
	for {
		r.sweepOnce(maxAge)
		time.Sleep(interval)
	}
}
