package kvstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultamed/auth-core/internal/logger"
)

func newTestSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := newSQLStore(db, sq.Dollar, logger.Nop())
	store.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	return store, mock, db
}

func TestSQLStore_Get_MissReturnsNil(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("users:missing").
		WillReturnError(sql.ErrNoRows)

	value, err := store.Get(context.Background(), "users:missing")
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Get_Hit(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"id":"u1"}`))
	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("users:u1").
		WillReturnRows(rows)

	value, err := store.Get(context.Background(), "users:u1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"u1"}`), value)
}

func TestSQLStore_Set_Upserts(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("users:u1", []byte("v"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), "users:u1", []byte("v")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SetIfAbsent_Created(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("users:email:a@b.c", []byte("u1"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.SetIfAbsent(context.Background(), "users:email:a@b.c", []byte("u1"))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSQLStore_SetIfAbsent_AlreadyPresent(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	// ON CONFLICT DO NOTHING reports zero affected rows on conflict.
	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("users:email:a@b.c", []byte("u2"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := store.SetIfAbsent(context.Background(), "users:email:a@b.c", []byte("u2"))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSQLStore_SetIfAbsent_UniqueViolationClassifiedAsPresent(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("licenses:MED-1", []byte("u1"), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	created, err := store.SetIfAbsent(context.Background(), "licenses:MED-1", []byte("u1"))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSQLStore_DeleteIfExists(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM kv_entries").
		WithArgs("refresh_tokens:t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM kv_entries").
		WithArgs("refresh_tokens:t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := store.DeleteIfExists(context.Background(), "refresh_tokens:t1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteIfExists(context.Background(), "refresh_tokens:t1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLStore_List_PrefixScan(t *testing.T) {
	store, mock, db := newTestSQLStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"key"}).
		AddRow("sessions:1").
		AddRow("sessions:2")
	mock.ExpectQuery("SELECT key FROM kv_entries").
		WithArgs("sessions:%").
		WillReturnRows(rows)

	keys, err := store.List(context.Background(), "sessions:")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions:1", "sessions:2"}, keys)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `rate\_limit:login:1.2.3.4`, escapeLike("rate_limit:login:1.2.3.4"))
	assert.Equal(t, `plain:`, escapeLike("plain:"))
}
