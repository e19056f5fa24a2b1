package targz

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"io/fs"
	"path"
	"strings"
)

type Visitor interface {
	VisitDirectory(info fs.FileInfo) error
	// VisitFile gets the entry contents; body is valid until VisitFile returns.
	VisitFile(name string, info fs.FileInfo, body io.Reader) error
}

func Extract(input io.Reader, visitor Visitor) error {
	gzipReader, err := gzip.NewReader(input)
	if err != nil {
		return err
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		info := header.FileInfo()
		switch {
		case info.IsDir():
			err = visitor.VisitDirectory(info)
		case info.Mode().IsRegular():
			err = visitor.VisitFile(path.Clean(header.Name), info, tarReader)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// FileFunc is called for every regular file matching a suffix filter.
type FileFunc = func(name string, body io.Reader) error

type suffixVisitor struct {
	suffix string
	fn     FileFunc
}

func (v *suffixVisitor) VisitDirectory(info fs.FileInfo) error {
	return nil
}

func (v *suffixVisitor) VisitFile(name string, info fs.FileInfo, body io.Reader) error {
	if !strings.HasSuffix(strings.ToLower(name), v.suffix) || strings.HasPrefix(path.Base(name), ".") {
		return nil
	}
	return v.fn(name, body)
}

// WalkFiles calls fn for every regular file of the archive whose name ends
// with suffix (case-insensitive). Hidden files are skipped.
func WalkFiles(input io.Reader, suffix string, fn FileFunc) error {
	return Extract(input, &suffixVisitor{strings.ToLower(suffix), fn})
}
