// Package tokens persists the session token pair between runs.
//
// Backends:
//   - SQLiteRepository: local database file, values optionally sealed with
//     a passphrase-derived key (see cryptox.Sealer).
//   - RedisRepository: shared store keyed by profile, with a TTL, for
//     several processes using one session.
//
// Both satisfy auth.TokenStore. Load returns a zero models.Tokens when
// nothing is stored.
package tokens
