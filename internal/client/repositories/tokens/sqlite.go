package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/carpool/internal/client/models"
	"github.com/dmitrijs2005/carpool/internal/cryptox"
	"github.com/dmitrijs2005/carpool/internal/dbx"
)

const (
	keyAccess  = "access_token"
	keyRefresh = "refresh_token"
	keySalt    = "kdf_salt"
)

// ErrSealed is returned when stored tokens are encrypted and no Sealer was
// configured.
var ErrSealed = errors.New("stored tokens are sealed, passphrase required")

type SQLiteRepository struct {
	db     *sql.DB
	sealer Sealer
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// WithSealer returns a copy of r that seals values with s.
func (r *SQLiteRepository) WithSealer(s Sealer) *SQLiteRepository {
	return &SQLiteRepository{db: r.db, sealer: s}
}

// Salt returns the key-derivation salt, creating it on first use.
func (r *SQLiteRepository) Salt(ctx context.Context) ([]byte, error) {
	salt, _, err := get(ctx, r.db, keySalt)
	if err != nil {
		return nil, err
	}
	if salt != nil {
		return salt, nil
	}

	salt, err = cryptox.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := set(ctx, r.db, keySalt, salt, nil); err != nil {
		return nil, err
	}
	return salt, nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (models.Tokens, error) {
	access, err := r.read(ctx, keyAccess)
	if err != nil {
		return models.Tokens{}, err
	}
	refresh, err := r.read(ctx, keyRefresh)
	if err != nil {
		return models.Tokens{}, err
	}
	return models.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, t models.Tokens) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.write(ctx, tx, keyAccess, t.AccessToken); err != nil {
			return err
		}
		return r.write(ctx, tx, keyRefresh, t.RefreshToken)
	})
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE key IN (?, ?)`, keyAccess, keyRefresh)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) read(ctx context.Context, key string) (string, error) {
	value, nonce, err := get(ctx, r.db, key)
	if err != nil || value == nil {
		return "", err
	}
	if nonce == nil {
		return string(value), nil
	}
	if r.sealer == nil {
		return "", ErrSealed
	}
	plain, err := r.sealer.Open(value, nonce)
	if err != nil {
		return "", fmt.Errorf("failed to open session[%s]: %w", key, err)
	}
	return string(plain), nil
}

func (r *SQLiteRepository) write(ctx context.Context, db dbx.DBTX, key, value string) error {
	if value == "" {
		_, err := db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("failed to delete session[%s]: %w", key, err)
		}
		return nil
	}

	if r.sealer == nil {
		return set(ctx, db, key, []byte(value), nil)
	}
	ct, nonce, err := r.sealer.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to seal session[%s]: %w", key, err)
	}
	return set(ctx, db, key, ct, nonce)
}

func get(ctx context.Context, db dbx.DBTX, key string) (value, nonce []byte, err error) {
	err = db.QueryRowContext(ctx, `SELECT value, nonce FROM session WHERE key = ?`, key).Scan(&value, &nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session[%s]: %w", key, err)
	}
	return value, nonce, nil
}

func set(ctx context.Context, db dbx.DBTX, key string, value, nonce []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session (key, value, nonce, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, nonce = excluded.nonce, updated_at = excluded.updated_at
	`, key, value, nonce)
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}
