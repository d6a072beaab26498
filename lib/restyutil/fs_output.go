package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates a fresh run-<timestamp>-* directory under dir
// and returns an output that writes one file per exchange into it. Existing
// contents of dir are left alone.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	runDir, err := os.MkdirTemp(dir, time.Now().Format("run-20060102-150405-*"))
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: runDir}, nil
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}
