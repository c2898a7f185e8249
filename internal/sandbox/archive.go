package sandbox

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"time"
)

// buildFileArchive wraps content into a single-entry uncompressed tar stream
// named name, the wire format the container archive channel moves files over.
func buildFileArchive(name string, content []byte) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	header := &tar.Header{
		Name:    name,
		Size:    int64(len(content)),
		Mode:    0644,
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return nil, fmt.Errorf("write tar header: %w", err)
	}
	if _, err := tw.Write(content); err != nil {
		return nil, fmt.Errorf("write tar body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar writer: %w", err)
	}
	return &buf, nil
}

// extractSingleFile reads the first entry of an archive stream and returns
// its content. Returns ErrIsDirectory if the entry is a directory.
func extractSingleFile(r io.Reader) ([]byte, error) {
	tr := tar.NewReader(r)
	header, err := tr.Next()
	if err == io.EOF {
		return nil, ErrIsDirectory
	}
	if err != nil {
		return nil, fmt.Errorf("read tar header: %w", err)
	}
	if header.Typeflag == tar.TypeDir {
		return nil, ErrIsDirectory
	}
	return io.ReadAll(tr)
}

// ErrIsDirectory is returned by file reads against a directory path.
var ErrIsDirectory = fmt.Errorf("path is a directory")
