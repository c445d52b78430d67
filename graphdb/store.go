package graphdb

import (
	"context"
	"database/sql"
	"net/url"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

const memoryPath = ":memory:"

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSource(path))
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	// every connection to :memory: is its own database
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &ConnectionError{Err: err}
	}

	s := &Store{db: db, single: path == memoryPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// dataSource builds the driver DSN. Writers take the lock at BEGIN so that
// read-then-write units (upsert, embedding sequence ids) cannot interleave.
func dataSource(path string) string {
	params := url.Values{}
	params.Add("_txlock", "immediate")
	params.Add("_pragma", "busy_timeout(5000)")
	if path != memoryPath {
		params.Add("_pragma", "journal_mode(WAL)")
	}

	return "file:" + path + "?" + params.Encode()
}

func (s *Store) migrate() error {
	return s.Atomic(context.Background(), execScript(schema))
}

func execScript(script string) Work {
	return func(ctx context.Context, cur Cursor) error {
		_, err := cur.ExecContext(ctx, script)
		return err
	}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}
