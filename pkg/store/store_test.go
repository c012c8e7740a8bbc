package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlStore, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlStore,
	}
}

func record(query string, at time.Time) *ArticleRecord {
	article, _ := json.Marshal(map[string]any{"title": "About " + query})
	return &ArticleRecord{
		Query:      query,
		Title:      "About " + query,
		Article:    article,
		Model:      "gpt-4",
		DurationMS: 1500,
		CreatedAt:  at,
	}
}

func TestStore_SaveGet(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := record("interest rates", time.Time{})
			require.NoError(t, s.Save(ctx, rec))
			assert.NotEmpty(t, rec.ID)
			assert.False(t, rec.CreatedAt.IsZero())

			got, err := s.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, rec.Query, got.Query)
			assert.Equal(t, rec.Title, got.Title)
			assert.JSONEq(t, string(rec.Article), string(got.Article))
			assert.Equal(t, int64(1500), got.DurationMS)
			assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)

			_, err = s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			for i, q := range []string{"first", "second", "third"} {
				require.NoError(t, s.Save(ctx, record(q, base.Add(time.Duration(i)*time.Minute))))
			}

			recs, err := s.List(ctx, 2)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "third", recs[0].Query)
			assert.Equal(t, "second", recs[1].Query)

			recs, err = s.List(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, recs, 3)
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := record("draft", time.Time{})
			require.NoError(t, s.Save(ctx, rec))

			rec.Title = "Final"
			require.NoError(t, s.Save(ctx, rec))

			got, err := s.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, "Final", got.Title)

			recs, err := s.List(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, recs, 1)
		})
	}
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: "postgres"}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	my := &SQLStore{dialect: "mysql"}
	assert.Equal(t, "a = ?", my.rebind("a = ?"))
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("user:pass@tcp(localhost:3306)/news")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}
