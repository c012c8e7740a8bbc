// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/newsmind/pkg/utils"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS articles (
    id VARCHAR(64) PRIMARY KEY,
    query TEXT NOT NULL,
    title TEXT NOT NULL,
    article TEXT NOT NULL,
    model VARCHAR(255) NOT NULL,
    duration_ms BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

// SQLStore keeps records in a SQL database. Supported dialects are
// sqlite, postgres and mysql.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database and creates the schema. For sqlite a bare
// file name is placed in the local data directory.
func Open(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	driverName := dialect
	switch dialect {
	case "sqlite":
		// go-sqlite3 registers itself as "sqlite3".
		driverName = "sqlite3"
		resolved, err := sqlitePath(dsn)
		if err != nil {
			return nil, err
		}
		dsn = resolved
	case "postgres":
	case "mysql":
		resolved, err := mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = resolved
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driverName == "sqlite3" {
		// One writer at a time avoids "database is locked".
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the schema if needed.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	slog.Debug("Article store ready", "dialect", dialect)
	return s, nil
}

func (s *SQLStore) Save(ctx context.Context, rec *ArticleRecord) error {
	prepare(rec)

	var query string
	switch s.dialect {
	case "postgres":
		query = `INSERT INTO articles (id, query, title, article, model, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET query = EXCLUDED.query, title = EXCLUDED.title,
article = EXCLUDED.article, model = EXCLUDED.model, duration_ms = EXCLUDED.duration_ms`
	case "mysql":
		query = `INSERT INTO articles (id, query, title, article, model, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE query = VALUES(query), title = VALUES(title),
article = VALUES(article), model = VALUES(model), duration_ms = VALUES(duration_ms)`
	default:
		query = `INSERT OR REPLACE INTO articles (id, query, title, article, model, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Query, rec.Title, string(rec.Article), rec.Model, rec.DurationMS, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*ArticleRecord, error) {
	query := s.rebind(`SELECT id, query, title, article, model, duration_ms, created_at FROM articles WHERE id = ?`)

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]*ArticleRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := s.rebind(`SELECT id, query, title, article, model, duration_ms, created_at FROM articles
ORDER BY created_at DESC LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var out []*ArticleRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*ArticleRecord, error) {
	var (
		rec     ArticleRecord
		article string
	)
	if err := row.Scan(&rec.ID, &rec.Query, &rec.Title, &article, &rec.Model, &rec.DurationMS, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Article = []byte(article)
	return &rec, nil
}

// rebind converts ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sqlitePath(dsn string) (string, error) {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	if filepath.Dir(dsn) != "." {
		return dsn, nil
	}
	dir, err := utils.EnsureDataDir(".")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dsn), nil
}

// mysqlDSN enables parseTime so TIMESTAMP columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
