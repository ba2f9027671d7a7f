package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// CommandSync caches the digest of the last command set pushed to the
// platform, so unchanged sets skip the bulk overwrite on restart.
type CommandSync struct {
	db *DB
}

// NewCommandSync creates a sync cache over an open database.
func NewCommandSync(db *DB) *CommandSync {
	return &CommandSync{db: db}
}

// DigestOf computes a stable digest over an ordered command schema set.
func DigestOf(schemas []json.RawMessage) string {
	h := sha256.New()
	for _, s := range schemas {
		h.Write(s)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the cached digest for an application, or "" if never synced.
func (c *CommandSync) Digest(appID string) (string, error) {
	var digest string
	err := c.db.sql.QueryRow(
		"SELECT digest FROM command_sync WHERE application_id = ?", appID,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync digest: %w", err)
	}
	return digest, nil
}

// SetDigest records a successful sync.
func (c *CommandSync) SetDigest(appID, digest string, count int) error {
	_, err := c.db.sql.Exec(`
		INSERT INTO command_sync (application_id, digest, command_count, synced_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(application_id) DO UPDATE SET
			digest = excluded.digest,
			command_count = excluded.command_count,
			synced_at = excluded.synced_at
	`, appID, digest, count)
	if err != nil {
		return fmt.Errorf("recording sync digest: %w", err)
	}
	return nil
}

// OverwriteFunc pushes a command set to the platform.
type OverwriteFunc func(ctx context.Context, appID string, schemas []json.RawMessage) error

// SyncIfChanged pushes the schemas when their digest differs from the
// cached one. Returns true if a push happened.
func (c *CommandSync) SyncIfChanged(ctx context.Context, appID string, schemas []json.RawMessage, overwrite OverwriteFunc) (bool, error) {
	digest := DigestOf(schemas)
	cached, err := c.Digest(appID)
	if err != nil {
		return false, err
	}
	if cached == digest {
		c.db.log.Debug().Str("appId", appID).Msg("command set unchanged, skipping sync")
		return false, nil
	}

	if err := overwrite(ctx, appID, schemas); err != nil {
		return false, fmt.Errorf("overwriting commands: %w", err)
	}
	if err := c.SetDigest(appID, digest, len(schemas)); err != nil {
		return true, err
	}

	c.db.log.Info().Str("appId", appID).Int("commands", len(schemas)).Msg("command set synced")
	return true, nil
}
