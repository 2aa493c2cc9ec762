package backend

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusrooms/backend/internal/config"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/view"
)

var _ view.Source = (*Client)(nil)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	_, currentFile, _, _ := runtime.Caller(0)
	return config.Config{
		DBPath:        filepath.Join(t.TempDir(), "test.db"),
		MigrationsDir: filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations"),
	}
}

func TestSharedReturnsSameHandle(t *testing.T) {
	cfg := testConfig(t)
	first, err := Shared(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	other := cfg
	other.DBPath = filepath.Join(t.TempDir(), "other.db")
	second, err := Shared(context.Background(), other)
	require.NoError(t, err)
	assert.Same(t, first, second)
	require.NoError(t, first.Ping(context.Background()))
}

func TestDisplayNameFallsBack(t *testing.T) {
	client, err := Open(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	now := time.Now().UTC()
	id := uuid.NewString()
	name := "Ada Lovelace"
	require.NoError(t, client.Users.CreateWithProfile(ctx,
		&model.User{ID: id, Email: "ada@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now},
		&model.Profile{ID: id, FullName: &name, CreatedAt: now},
	))

	assert.Equal(t, "Ada Lovelace", client.DisplayName(ctx, id))
	assert.Equal(t, model.AnonymousDisplayName, client.DisplayName(ctx, uuid.NewString()))
}

func TestRevocationsWithoutRedis(t *testing.T) {
	revocations := NewRevocations(nil)
	assert.False(t, revocations.Enabled())
	require.NoError(t, revocations.Revoke(context.Background(), "token", time.Now().Add(time.Hour)))
	revoked, err := revocations.IsRevoked(context.Background(), "token")
	require.NoError(t, err)
	assert.False(t, revoked)
}
