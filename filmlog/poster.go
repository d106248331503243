package filmlog

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/filmlog/filmlog-server/idhash"
)

// allowed poster upload extensions
var posterExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// savePoster validates an uploaded poster and writes it to the poster
// directory. The stored name is the content hash, identical uploads
// dedupe and names never collide with user input.
func (f *Filmlog) savePoster(upload *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !posterExtensions[ext] {
		return "", errors.New("poster must be a jpg, png or webp image")
	}

	src, err := upload.Open()
	if err != nil {
		return "", errors.New("could not read poster upload")
	}
	defer src.Close()

	blob, err := io.ReadAll(src)
	if err != nil {
		return "", errors.New("could not read poster upload")
	}
	name := idhash.HashBytes(blob) + ext

	if err := os.MkdirAll(f.posterdir, 0755); err != nil {
		return "", err
	}
	fn := filepath.Join(f.posterdir, name)
	if err := os.WriteFile(fn, blob, 0644); err != nil {
		return "", err
	}
	return name, nil
}

// GET /posters/{file}?w=300&h=450&q=80
//
// posterHandler serves a stored poster, resized when dimensions are given.
func (f *Filmlog) posterHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	// path.Base strips any traversal attempt, posters live flat in one dir.
	name := path.Base(vars["file"])
	if name == "." || name == "/" {
		apierror(w, "poster not found", http.StatusNotFound)
		return
	}

	file, err := f.imageresizer.OpenFile(w, r, filepath.Join(f.posterdir, name))
	if err != nil {
		apierror(w, "poster not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	fileStat, err := file.Stat()
	if err != nil {
		apierror(w, "could not retrieve file info", http.StatusInternalServerError)
		return
	}
	w.Header().Set("cache-control", "max-age=2592000")
	http.ServeContent(w, r, fileStat.Name(), fileStat.ModTime(), file)
}
