package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/filecheck/internal/config"
	"github.com/JonMunkholm/filecheck/internal/core"
)

func TestWhereBuilder(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		where, args := newWhereBuilder(dollarPlaceholder).Build()
		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("skips empty values", func(t *testing.T) {
		wb := newWhereBuilder(dollarPlaceholder)
		wb.Add("file_name", "report.csv")
		wb.Add("validation_rule", "")
		wb.Add("run_id", "run-1")

		where, args := wb.Build()
		assert.Equal(t, " WHERE file_name = $1 AND run_id = $2", where)
		assert.Equal(t, []any{"report.csv", "run-1"}, args)
	})

	t.Run("question placeholders", func(t *testing.T) {
		wb := newWhereBuilder(questionPlaceholder)
		wb.Add("file_name", "report.csv")

		where, _ := wb.Build()
		assert.Equal(t, " WHERE file_name = ?", where)
	})
}

func TestListQuery(t *testing.T) {
	query, args := listQuery(Filter{FileName: "report.csv", Limit: 5}, dollarPlaceholder)

	assert.Equal(t,
		"SELECT id, run_id, file_name, validation_rule, result, created_at FROM validation_results"+
			" WHERE file_name = $1 ORDER BY seq DESC LIMIT $2",
		query)
	assert.Equal(t, []any{"report.csv", 5}, args)

	query, args = listQuery(Filter{}, questionPlaceholder)
	assert.Contains(t, query, "validation_results ORDER BY seq DESC LIMIT ?")
	assert.Equal(t, []any{DefaultListLimit}, args)
}

func TestFilterLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, Filter{}.limit())
	assert.Equal(t, DefaultListLimit, Filter{Limit: -3}.limit())
	assert.Equal(t, 7, Filter{Limit: 7}.limit())
	assert.Equal(t, MaxListLimit, Filter{Limit: MaxListLimit + 1}.limit())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := Open(ctx, config.StoreConfig{Driver: config.DriverMemory})
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, s)
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := Open(ctx, config.StoreConfig{Driver: "SQLite", SQLitePath: t.TempDir() + "/results.db"})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &SQLite{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, config.StoreConfig{Driver: "mysql"})
		assert.ErrorContains(t, err, "unknown store driver")
	})
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	records := []core.Record{
		{FileName: "a.csv", Rule: core.RuleFileName, Message: "File name is valid."},
		{FileName: "a.csv", Rule: core.RuleFileSize, Message: "File size is valid."},
		{FileName: "b.csv", Rule: core.RuleFileType, Message: "File type mismatch. Expected csv file."},
	}
	for _, rec := range records {
		require.NoError(t, s.Record(ctx, rec))
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b.csv", all[0].FileName, "newest first")
	assert.Equal(t, core.RuleFileName, all[2].Rule)
	for _, e := range all {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}

	onlyA, err := s.List(ctx, Filter{FileName: "a.csv"})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "File size is valid.", onlyA[0].Result)

	limited, err := s.List(ctx, Filter{FileName: "a.csv", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	byRule, err := s.List(ctx, Filter{Rule: core.RuleFileType})
	require.NoError(t, err)
	require.Len(t, byRule, 1)
	assert.Equal(t, "b.csv", byRule[0].FileName)

	none, err := s.List(ctx, Filter{FileName: "missing.csv"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
