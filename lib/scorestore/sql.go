package scorestore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"scorepusher/lib/scores"
	"scorepusher/lib/timezone"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var schema = []string{`
create table if not exists score_record (
	position integer not null primary key,
	year text not null,
	term text not null,
	course_code text not null,
	course_name text not null,
	course_nature text not null,
	course_belong text not null,
	credit real not null,
	gpa real not null,
	score text not null,
	minor_flag integer not null,
	makeup_score text not null,
	retake_score text not null,
	college_name text not null,
	comment text not null,
	retake_flag integer not null,
	course_english_name text not null
)`, `
create table if not exists fetch_history (
	id integer primary key autoincrement,
	fetched_at integer not null,
	records integer not null
)`,
}

// SqlStore keeps the snapshot in a sqlite compatible database and logs
// every save to fetch_history.
type SqlStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSqlStore(ctx context.Context, db *sql.DB) (*SqlStore, error) {
	for _, statement := range schema {
		_, err := db.ExecContext(ctx, statement)
		if err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SqlStore{db: db, now: timezone.Now}, nil
}

func OpenSqlite(ctx context.Context, path string) (*SqlStore, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers and keeps :memory: databases
	// alive between statements
	db.SetMaxOpenConns(1)
	_, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	store, err := NewSqlStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func OpenLibsql(ctx context.Context, databaseUrl, authToken string) (*SqlStore, error) {
	if databaseUrl == "" {
		return nil, fmt.Errorf("a database url was not specified")
	}
	dsn, err := url.Parse(databaseUrl)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		query := dsn.Query()
		query.Set("authToken", authToken)
		dsn.RawQuery = query.Encode()
	}

	db, err := sql.Open("libsql", dsn.String())
	if err != nil {
		return nil, err
	}
	store, err := NewSqlStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SqlStore) Load(ctx context.Context) (scores.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		select year, term, course_code, course_name, course_nature, course_belong,
			credit, gpa, score, minor_flag, makeup_score, retake_score,
			college_name, comment, retake_flag, course_english_name
		from score_record
		order by position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := scores.Snapshot{}
	for rows.Next() {
		var r scores.Record
		err := rows.Scan(
			&r.Year, &r.Term, &r.CourseCode, &r.CourseName, &r.CourseNature, &r.CourseBelong,
			&r.Credit, &r.GradePoint, &r.Score, &r.MinorFlag, &r.MakeupScore, &r.RetakeScore,
			&r.CollegeName, &r.Comment, &r.RetakeFlag, &r.CourseEnglishName,
		)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, r)
	}
	return snapshot, rows.Err()
}

// Save replaces the stored snapshot in one transaction.
func (s *SqlStore) Save(ctx context.Context, snapshot scores.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from score_record")
	if err != nil {
		return err
	}
	for i, r := range snapshot {
		_, err := tx.ExecContext(ctx, `
			insert into score_record (
				position, year, term, course_code, course_name, course_nature, course_belong,
				credit, gpa, score, minor_flag, makeup_score, retake_score,
				college_name, comment, retake_flag, course_english_name
			) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.Year, r.Term, r.CourseCode, r.CourseName, r.CourseNature, r.CourseBelong,
			r.Credit, r.GradePoint, r.Score, r.MinorFlag, r.MakeupScore, r.RetakeScore,
			r.CollegeName, r.Comment, r.RetakeFlag, r.CourseEnglishName,
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(
		ctx,
		"insert into fetch_history (fetched_at, records) values (?, ?)",
		s.now().Unix(), len(snapshot),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// History returns the most recent saves first.
func (s *SqlStore) History(ctx context.Context, limit int) ([]Fetch, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select fetched_at, records from fetch_history order by id desc limit ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Fetch
	for rows.Next() {
		var fetchedAt int64
		var fetch Fetch
		err := rows.Scan(&fetchedAt, &fetch.Records)
		if err != nil {
			return nil, err
		}
		fetch.Time = time.Unix(fetchedAt, 0).In(timezone.Location)
		history = append(history, fetch)
	}
	return history, rows.Err()
}

func (s *SqlStore) Close() error {
	return s.db.Close()
}
