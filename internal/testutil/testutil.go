// Package testutil provides helpers for integration tests that need real
// Postgres or Redis instances.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mdmc/smartlinks/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 742742

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates all tables by replaying the migrations.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range []string{"000002_clicks", "000001_smartlinks"} {
		if err := applyMigration(ctx, pool, name+".down.sql"); err != nil {
			return err
		}
	}
	for _, name := range []string{"000001_smartlinks", "000002_clicks"} {
		if err := applyMigration(ctx, pool, name+".up.sql"); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, file string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	sql, err := os.ReadFile(filepath.Join(root, "migrations", file))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", file, err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// NewTestSmartLink creates a smart link populated with Spotify and Deezer
// platforms for tests.
func NewTestSmartLink(t testing.TB, id string) *model.SmartLink {
	t.Helper()
	now := time.Now().UTC()
	return &model.SmartLink{
		ID:     id,
		Slug:   fmt.Sprintf("test-release-%d", now.UnixNano()),
		Title:  "Test Release",
		Artist: "Test Artist",
		Tags:   []string{"rap", "fr"},
		Platforms: []model.Platform{
			{ServiceName: "spotify", DisplayName: "Spotify", URL: "https://open.spotify.com/album/test"},
			{ServiceName: "deezer", DisplayName: "Deezer", URL: "https://deezer.com/album/test"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestClickEvent creates a click event with a populated geo record.
func NewTestClickEvent(t testing.TB, smartlinkID, serviceName string) *model.ClickEvent {
	t.Helper()
	return &model.ClickEvent{
		SmartlinkID: smartlinkID,
		ServiceName: serviceName,
		UserAgent:   "testutil/1.0",
		VisitorHash: "a1b2c3d4e5f60718",
		Geo: model.GeoRecord{
			Country:     "France",
			Region:      "Île-de-France",
			City:        "Paris",
			CountryCode: "FR",
			Timezone:    "Europe/Paris",
			IP:          "203.0.113.7",
		},
		ClickedAt: time.Now().UTC(),
	}
}

// InsertSmartLink writes a smart link and its platforms directly.
func InsertSmartLink(ctx context.Context, pool *pgxpool.Pool, link *model.SmartLink) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO smartlinks (id, slug, title, artist, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, link.ID, link.Slug, link.Title, link.Artist, link.Tags, link.CreatedAt, link.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert smartlink: %w", err)
	}

	for i, p := range link.Platforms {
		_, err := pool.Exec(ctx, `
			INSERT INTO smartlink_platforms (smartlink_id, service_name, display_name, url, position)
			VALUES ($1, $2, $3, $4, $5)
		`, link.ID, p.ServiceName, p.DisplayName, p.URL, i)
		if err != nil {
			return fmt.Errorf("insert platform %s: %w", p.ServiceName, err)
		}
	}

	return nil
}
