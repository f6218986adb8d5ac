// Package fsutil reads runner-provided files without following the path
// outside its directory.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MaxPayloadSize caps how much of a runner-provided file is read. Event
// payloads are far below this.
const MaxPayloadSize = 25 << 20

// ReadFileScoped reads a file by opening a root at the file's directory,
// reading at most MaxPayloadSize bytes.
func ReadFileScoped(path string) ([]byte, error) {
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	if path == "" || base == "." || base == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	file, err := root.Open(base)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxPayloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, MaxPayloadSize)
	}
	return data, nil
}

// ReadOptional is ReadFileScoped that reports a missing file, or a missing
// directory, as nil data and no error.
func ReadOptional(path string) ([]byte, error) {
	data, err := ReadFileScoped(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}
