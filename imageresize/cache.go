package imageresize

import (
	"bytes"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
)

// sweepOnce removes cache entries whose last access is older than maxAge.
// Falls back to modification time on filesystems without atime.
func (r *Resizer) sweepOnce(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(r.cachedir)
	if err != nil {
		log.Printf("imageresize: cache sweep: %s", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fn := filepath.Join(r.cachedir, entry.Name())
		ts, err := times.Stat(fn)
		if err != nil {
			continue
		}
		last := ts.ModTime()
		if ts.AccessTime().After(last) {
			last = ts.AccessTime()
		}
		if last.Before(cutoff) {
			os.Remove(fn)
		}
	}
}

// blobFile is an in-memory http.File over an encoded image, used when no
// cache directory is configured.
type blobFile struct {
	*bytes.Reader
	fi   os.FileInfo
	name string
	size int64
}

func newBlobFile(blob []byte, fi os.FileInfo, name string) *blobFile {
	return &blobFile{
		Reader: bytes.NewReader(blob),
		fi:     fi,
		name:   name,
		size:   int64(len(blob)),
	}
}

func (f *blobFile) Close() error {
	return nil
}

func (f *blobFile) Readdir(int) ([]os.FileInfo, error) {
	return nil, fs.ErrInvalid
}

func (f *blobFile) Stat() (os.FileInfo, error) {
	return blobFileInfo{f}, nil
}

// blobFileInfo borrows name and mtime from the source poster but reports
// the encoded blob's size.
type blobFileInfo struct {
	f *blobFile
}

func (i blobFileInfo) Name() string       { return i.f.name }
func (i blobFileInfo) Size() int64        { return i.f.size }
func (i blobFileInfo) Mode() fs.FileMode  { return i.f.fi.Mode() }
func (i blobFileInfo) ModTime() time.Time { return i.f.fi.ModTime() }
func (i blobFileInfo) IsDir() bool        { return false }
func (i blobFileInfo) Sys() any           { return nil }
