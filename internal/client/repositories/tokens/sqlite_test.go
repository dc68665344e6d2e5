package tokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/carpool/internal/client/models"
	"github.com/dmitrijs2005/carpool/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE session (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  nonce      BLOB,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	require.NoError(t, err)
	return db
}

func TestSQLite_LoadEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	got, err := r.Load(context.Background())

	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestSQLite_SaveLoadClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	want := models.Tokens{AccessToken: "A1", RefreshToken: "R1"}
	require.NoError(t, r.Save(ctx, want))

	got, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// overwrite, refresh token dropped
	require.NoError(t, r.Save(ctx, models.Tokens{AccessToken: "A2"}))
	got, err = r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Tokens{AccessToken: "A2"}, got)

	require.NoError(t, r.Clear(ctx))
	got, err = r.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func newSealer(t *testing.T, r *SQLiteRepository, pass string) *cryptox.Sealer {
	t.Helper()
	salt, err := r.Salt(context.Background())
	require.NoError(t, err)
	s, err := cryptox.NewSealer([]byte(pass), salt)
	require.NoError(t, err)
	return s
}

func TestSQLite_Sealed(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	plain := NewSQLiteRepository(db)
	sealed := plain.WithSealer(newSealer(t, plain, "school-run"))

	require.NoError(t, sealed.Save(ctx, models.Tokens{AccessToken: "A1", RefreshToken: "R1"}))

	var raw []byte
	require.NoError(t, db.QueryRow(`SELECT value FROM session WHERE key = 'access_token'`).Scan(&raw))
	assert.NotEqual(t, "A1", string(raw))

	got, err := sealed.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Tokens{AccessToken: "A1", RefreshToken: "R1"}, got)

	_, err = plain.Load(ctx)
	assert.ErrorIs(t, err, ErrSealed)

	wrong := plain.WithSealer(newSealer(t, plain, "guess"))
	_, err = wrong.Load(ctx)
	assert.Error(t, err)
}

func TestSQLite_SaltIsStable(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	s1, err := r.Salt(ctx)
	require.NoError(t, err)
	s2, err := r.Salt(ctx)
	require.NoError(t, err)

	assert.Len(t, s1, cryptox.SaltSize)
	assert.Equal(t, s1, s2)

	// clearing the session keeps the salt
	require.NoError(t, r.Clear(ctx))
	s3, err := r.Salt(ctx)
	require.NoError(t, err)
	assert.Equal(t, s1, s3)
}

func TestSQLite_SaveRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO session").WithArgs("access_token", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO session").WithArgs("refresh_token", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = NewSQLiteRepository(db).Save(context.Background(), models.Tokens{AccessToken: "A", RefreshToken: "R"})

	require.ErrorContains(t, err, "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_LoadQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value, nonce FROM session").WithArgs("access_token").
		WillReturnError(errors.New("database is locked"))

	_, err = NewSQLiteRepository(db).Load(context.Background())

	require.ErrorContains(t, err, "failed to get session[access_token]")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_ClearError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM session").WillReturnError(errors.New("readonly"))

	err = NewSQLiteRepository(db).Clear(context.Background())
	require.ErrorContains(t, err, "failed to clear session")
}
