// Package sqlitestore is a durable implementation of metadata.Store
// backed by a pure-Go SQLite driver, for hosts that want metadata to
// survive a process restart.
package sqlitestore

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/wpcore-go/wpcore/internal/iter"
	"github.com/wpcore-go/wpcore/internal/metadata"
	"github.com/wpcore-go/wpcore/internal/wperr"
)

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
	subject TEXT NOT NULL,
	key     TEXT NOT NULL,
	type    TEXT NOT NULL,
	value   TEXT NOT NULL,
	PRIMARY KEY (subject, key)
);
`

// Store is a metadata.Store backed by a SQLite database file.
type Store struct {
	db *sql.DB

	mu   sync.Mutex
	subs []chan metadata.Change
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wperr.New(wperr.KindOperationFailed, "sqlitestore.Open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wperr.New(wperr.KindOperationFailed, "sqlitestore.Open", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Find(ctx context.Context, subject, key string) (string, string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value, type FROM metadata WHERE subject = ? AND key = ?`, subject, key)
	var value, typ string
	if err := row.Scan(&value, &typ); err != nil {
		if err == sql.ErrNoRows {
			return "", "", false, nil
		}
		return "", "", false, wperr.New(wperr.KindOperationFailed, "Find", err)
	}
	return value, typ, true, nil
}

func (s *Store) Set(ctx context.Context, subject, key, typ, value string) error {
	if value == "" {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE subject = ? AND key = ?`, subject, key); err != nil {
			return wperr.New(wperr.KindOperationFailed, "Set", err)
		}
		s.publish(metadata.Change{Entry: metadata.Entry{Subject: subject, Key: key}, Removed: true})
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (subject, key, type, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(subject, key) DO UPDATE SET type = excluded.type, value = excluded.value
	`, subject, key, typ, value)
	if err != nil {
		return wperr.New(wperr.KindOperationFailed, "Set", err)
	}
	s.publish(metadata.Change{Entry: metadata.Entry{Subject: subject, Key: key, Type: typ, Value: value}})
	return nil
}

// Iter returns every entry for subject (or the whole table for ""),
// in insertion order.
func (s *Store) Iter(ctx context.Context, subject string) (iter.Iterator, error) {
	query := `SELECT subject, key, type, value FROM metadata ORDER BY rowid`
	args := []any{}
	if subject != "" {
		query = `SELECT subject, key, type, value FROM metadata WHERE subject = ? ORDER BY rowid`
		args = append(args, subject)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wperr.New(wperr.KindOperationFailed, "Iter", err)
	}
	defer rows.Close()
	var out []metadata.Entry
	for rows.Next() {
		var e metadata.Entry
		if err := rows.Scan(&e.Subject, &e.Key, &e.Type, &e.Value); err != nil {
			return nil, wperr.New(wperr.KindOperationFailed, "Iter", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wperr.New(wperr.KindOperationFailed, "Iter", err)
	}
	return iter.FromSlice(out), nil
}

func (s *Store) Clear(ctx context.Context, subject string) error {
	var err error
	if subject == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM metadata`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM metadata WHERE subject = ?`, subject)
	}
	if err != nil {
		return wperr.New(wperr.KindOperationFailed, "Clear", err)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context) <-chan metadata.Change {
	ch := make(chan metadata.Change, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.subs {
			if c == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (s *Store) publish(c metadata.Change) {
	s.mu.Lock()
	subs := append([]chan metadata.Change(nil), s.subs...)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- c:
		default:
		}
	}
}
