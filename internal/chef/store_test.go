package chef_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanrasoi/chef-client/internal/chef"
	"github.com/urbanrasoi/chef-client/internal/models"
	"github.com/urbanrasoi/chef-client/internal/store"
)

func TestLoginHydrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()

	first := chef.NewStore(chef.Options{Store: mem, BaseURL: "http://backend.test"})
	err := first.Login(ctx, models.ChefDTO{
		ID:         "c1",
		Name:       "Asha",
		FoodStyles: []string{"Karnataka Style"},
		MenuItems:  []models.MenuItem{{ID: "42", FoodName: "Dosa", IsAvailable: true}},
	}, "token-1", true)
	require.NoError(t, err)
	assert.True(t, first.IsLoggedIn())
	assert.True(t, first.IsNewAccount())

	// A fresh instance over the same storage restores the session.
	second := chef.NewStore(chef.Options{Store: mem, BaseURL: "http://backend.test"})
	assert.True(t, second.IsLoading())
	second.Hydrate(ctx)

	assert.False(t, second.IsLoading())
	assert.True(t, second.IsLoggedIn())
	assert.True(t, second.IsNewAccount())
	assert.Equal(t, "token-1", second.Token())
	assert.Equal(t, first.Profile(), second.Profile())
}

func TestHydrateWithoutSessionStaysLoggedOut(t *testing.T) {
	s := chef.NewStore(chef.Options{Store: store.NewMemoryStore()})
	s.Hydrate(context.Background())

	assert.False(t, s.IsLoggedIn())
	assert.False(t, s.IsLoading())
	assert.Equal(t, models.EmptyProfile(), s.Profile())
}

func TestHydrateTokenWithoutSnapshotStaysLoggedOut(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, store.KeyToken, "orphan-token"))

	s := chef.NewStore(chef.Options{Store: mem})
	s.Hydrate(ctx)

	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, "", s.Token())
}

func TestHydrateCorruptSnapshotDegradesToEmptyProfile(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, store.KeyToken, "token-1"))
	require.NoError(t, mem.Set(ctx, store.KeySnapshot, "{not json"))

	s := chef.NewStore(chef.Options{Store: mem})
	s.Hydrate(ctx)

	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, models.EmptyProfile(), s.Profile())
}

func TestLoginPersistFailureKeepsMemoryState(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.FailWrites = true

	s := chef.NewStore(chef.Options{Store: mem})
	err := s.Login(context.Background(), models.ChefDTO{Name: "Asha"}, "token-1", false)

	assert.Error(t, err)
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "Asha", s.Profile().Name)
	assert.Equal(t, "token-1", s.Token())
}

func TestLogoutThenHydrateYieldsEmptySession(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()

	s := chef.NewStore(chef.Options{Store: mem})
	require.NoError(t, s.Login(ctx, models.ChefDTO{ID: "c1", Name: "Asha"}, "token-1", false))

	s.Logout(ctx)
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, models.EmptyProfile(), s.Profile())

	// Nothing residual in storage.
	fresh := chef.NewStore(chef.Options{Store: mem})
	fresh.Hydrate(ctx)
	assert.False(t, fresh.IsLoggedIn())
	assert.Equal(t, "", fresh.Token())
	assert.Equal(t, models.EmptyProfile(), fresh.Profile())
}

func TestLogoutWithoutSessionIsSafe(t *testing.T) {
	s := chef.NewStore(chef.Options{Store: store.NewMemoryStore()})
	s.Logout(context.Background())
	s.Logout(context.Background())

	assert.False(t, s.IsLoggedIn())
}
