package delivery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var rasterExtensions = map[string]bool{".tif": true, ".tiff": true, ".jp2": true}

// FolderUploads opens every raster file directly inside dir, sorted by name.
// The returned function closes them.
func FolderUploads(dir string) ([]Upload, func(), error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, func() {}, &IOError{Op: "read", Path: dir, Err: err}
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !rasterExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return FileUploads(paths)
}

// FileUploads opens the given files as uploads named after their base name.
func FileUploads(paths []string) ([]Upload, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	uploads := make([]Upload, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, &IOError{Op: "open", Path: p, Err: err}
		}
		files = append(files, f)
		uploads = append(uploads, Upload{Name: filepath.Base(p), Content: f})
	}
	return uploads, closeAll, nil
}

// ReadVector loads an optional vector layer; an empty path yields nil.
func ReadVector(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
