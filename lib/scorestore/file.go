package scorestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"scorepusher/lib/scores"
)

const FileName = "score.json"

// FileStore keeps the snapshot as a json array of records, the same file
// layout older deployments already have on disk.
type FileStore struct {
	Path string
}

func NewFileStore(dataDir string) FileStore {
	return FileStore{Path: filepath.Join(dataDir, FileName)}
}

func (s FileStore) Load(ctx context.Context) (scores.Snapshot, error) {
	contents, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return scores.Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := scores.Snapshot{}
	err = json.Unmarshal(contents, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return snapshot, nil
}

// Save replaces the file atomically, a crash leaves either the old or the
// new snapshot.
func (s FileStore) Save(ctx context.Context, snapshot scores.Snapshot) error {
	if snapshot == nil {
		snapshot = scores.Snapshot{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(snapshot)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(buf.Bytes())
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

func (s FileStore) Close() error {
	return nil
}
