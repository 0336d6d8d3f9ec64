package io

import (
	"io"
	"os"
	"path/filepath"
)

type (
	// File is an output of synthesis, written relative to the output directory.
	File interface {
		Path() string
		WriteTo(io.Writer) (int64, error)
	}

	// RawFile is a file whose content is held in memory (templates, scripts).
	RawFile struct {
		FPath   string
		Content []byte
	}

	// FileRef is a file on disk which is only read when written out, such as a staged asset archive.
	FileRef struct {
		FPath      string
		SourcePath string
	}
)

func (r *RawFile) Path() string {
	return r.FPath
}

func (r *RawFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Content)
	return int64(n), err
}

func (r *FileRef) Path() string {
	return r.FPath
}

func (r *FileRef) WriteTo(w io.Writer) (int64, error) {
	f, err := os.Open(r.SourcePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

// OutputTo writes every file under `dest`, creating directories as needed and replacing existing files.
func OutputTo(files []File, dest string) error {
	errs := make(chan error)
	for idx := range files {
		go func(f File) {
			path := filepath.Join(dest, f.Path())
			if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
				errs <- err
				return
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
			if err != nil {
				errs <- err
				return
			}
			_, err = f.WriteTo(file)
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			errs <- err
		}(files[idx])
	}

	var firstErr error
	for i := 0; i < len(files); i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
