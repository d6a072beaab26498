// Package scorestore persists the last observed score snapshot between
// fetch cycles.
package scorestore

import (
	"context"
	"fmt"
	"path/filepath"
	"scorepusher/lib/scores"
	"time"
)

// Store holds exactly one snapshot, the one saved last.
type Store interface {
	// Load returns an empty snapshot when nothing was saved yet.
	Load(ctx context.Context) (scores.Snapshot, error)
	Save(ctx context.Context, snapshot scores.Snapshot) error
	Close() error
}

// Fetch is one successful cycle as recorded by stores that keep history.
type Fetch struct {
	Time    time.Time
	Records int
}

type HistoryStore interface {
	Store
	History(ctx context.Context, limit int) ([]Fetch, error)
}

const (
	KindFile   = "file"
	KindSqlite = "sqlite"
	KindLibsql = "libsql"
)

type Config struct {
	// file (default), sqlite or libsql
	Kind string `json:"kind" validate:"omitempty,oneof=file sqlite libsql"`
	// the sqlite database, relative to the data directory
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// Open returns the store config describes, relative paths are resolved
// against dataDir.
func Open(ctx context.Context, config Config, dataDir string) (Store, error) {
	switch config.Kind {
	case "", KindFile:
		return NewFileStore(dataDir), nil
	case KindSqlite:
		file := config.File
		if file == "" {
			file = "score.db"
		}
		if file != ":memory:" && !filepath.IsAbs(file) {
			file = filepath.Join(dataDir, file)
		}
		return OpenSqlite(ctx, file)
	case KindLibsql:
		return OpenLibsql(ctx, config.Url, config.AuthToken)
	}
	return nil, fmt.Errorf("unknown store kind %q", config.Kind)
}
