package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prms/portal/migrations"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"002_index.sql":      {Data: []byte("CREATE INDEX idx ON portal_credential (updated_at);")},
		"001_credential.sql": {Data: []byte("CREATE TABLE portal_credential (session_id UUID);")},
		"README.md":          {Data: []byte("not a migration")},
		"notes.sql":          {Data: []byte("-- no version prefix")},
		"abc_bad.sql":        {Data: []byte("-- non numeric prefix")},
	}
}

const ensureTable = `CREATE TABLE IF NOT EXISTS _migrations`
const selectApplied = `SELECT version, applied_at FROM _migrations`

func TestLoadMigrations_SortsAndSkips(t *testing.T) {
	m := NewMigrator(nil, testFiles())
	migs, err := m.LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)

	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "001_credential.sql", migs[0].Name)
	assert.Contains(t, migs[0].SQL, "portal_credential")
	assert.Equal(t, 2, migs[1].Version)
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	files := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 2;")},
	}
	_, err := NewMigrator(nil, files).LoadMigrations()
	assert.ErrorContains(t, err, "duplicate migration version 1")
}

func TestLoadMigrations_EmbeddedSchema(t *testing.T) {
	migs, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, 1, migs[0].Version)
	assert.Contains(t, migs[0].SQL, "CREATE TABLE IF NOT EXISTS portal_credential")
	assert.Contains(t, migs[0].SQL, "PRIMARY KEY (session_id, key)")
}

func TestMigrator_UpAppliesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(ensureTable)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(pgxmock.NewRows([]string{"version", "applied_at"}).AddRow(1, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX idx ON portal_credential")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO _migrations (version, name) VALUES ($1, $2)")).
		WithArgs(2, "002_index.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := NewMigrator(mock, testFiles()).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_UpStopsOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(ensureTable)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(pgxmock.NewRows([]string{"version", "applied_at"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE portal_credential")).
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	n, err := NewMigrator(mock, testFiles()).Up(context.Background())
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, "apply migration 1 (001_credential.sql)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_Status(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(ensureTable)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(pgxmock.NewRows([]string{"version", "applied_at"}).AddRow(1, at))

	statuses, err := NewMigrator(mock, testFiles()).Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.True(t, statuses[0].Applied)
	require.NotNil(t, statuses[0].AppliedAt)
	assert.Equal(t, at, *statuses[0].AppliedAt)
	assert.False(t, statuses[1].Applied)
	assert.Nil(t, statuses[1].AppliedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
