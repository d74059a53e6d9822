package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanrasoi/chef-client/internal/gateway"
	"github.com/urbanrasoi/chef-client/internal/models"
	"github.com/urbanrasoi/chef-client/internal/testhelpers"
)

func strPtr(s string) *string { return &s }

// authedGateway logs a seeded chef in and returns a gateway carrying
// the issued token.
func authedGateway(t *testing.T, b *testhelpers.Backend) *gateway.HTTPGateway {
	t.Helper()
	var token string
	gw := gateway.NewHTTPGateway(b.URL(), "", 5*time.Second, func() string { return token })

	res, err := gw.Login(context.Background(), "9876543210")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	token = res.AccessToken
	return gw
}

func TestLoginReturnsChefAndNewFlag(t *testing.T) {
	b := testhelpers.NewBackend(t)
	b.SeedChef("9876543210", models.ChefDTO{Name: "Asha", FoodStyles: []string{"Karnataka Style"}})

	gw := gateway.NewHTTPGateway(b.URL(), "", 5*time.Second, nil)
	res, err := gw.Login(context.Background(), "9876543210")
	require.NoError(t, err)

	assert.False(t, res.IsNewAccount)
	assert.Equal(t, "Asha", res.Chef.Name)
	assert.NotEmpty(t, res.AccessToken)

	// An unseen phone is a first-time account.
	res, err = gw.Login(context.Background(), "9000000000")
	require.NoError(t, err)
	assert.True(t, res.IsNewAccount)
}

func TestFetchProfileRequiresToken(t *testing.T) {
	b := testhelpers.NewBackend(t)

	anon := gateway.NewHTTPGateway(b.URL(), "", 5*time.Second, nil)
	_, err := anon.FetchProfile(context.Background())
	assert.ErrorContains(t, err, "401")

	authed := authedGateway(t, b)
	profile, err := authed.FetchProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9876543210", profile.PhoneNumber)
}

func TestUpdateProfileJSON(t *testing.T) {
	b := testhelpers.NewBackend(t)
	gw := authedGateway(t, b)

	upd, err := gw.UpdateProfile(context.Background(), gateway.ProfilePatch{
		Name:        strPtr("Asha"),
		NativePlace: strPtr("Mysuru"),
	})
	require.NoError(t, err)

	require.NotNil(t, upd.Name)
	assert.Equal(t, "Asha", *upd.Name)
	require.NotNil(t, upd.NativePlace)
	assert.Equal(t, "Mysuru", *upd.NativePlace)
}

func TestUpdateProfileMultipartUploadsImage(t *testing.T) {
	b := testhelpers.NewBackend(t)
	gw := authedGateway(t, b)

	imgPath := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("png-bytes"), 0o644))

	upd, err := gw.UpdateProfile(context.Background(), gateway.ProfilePatch{
		Name:      strPtr("Asha"),
		ImagePath: &imgPath,
	})
	require.NoError(t, err)

	require.NotNil(t, upd.PhotoURL)
	assert.Equal(t, "/uploads/me.png", *upd.PhotoURL)
}

func TestUpdateFoodStyles(t *testing.T) {
	b := testhelpers.NewBackend(t)
	gw := authedGateway(t, b)

	styles, err := gw.UpdateFoodStyles(context.Background(), []string{"Karnataka Style"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Karnataka Style"}, styles)
}

func TestAddMenuItemReturnsServerID(t *testing.T) {
	b := testhelpers.NewBackend(t)
	gw := authedGateway(t, b)

	item, err := gw.AddMenuItem(context.Background(), models.MenuItem{
		FoodName:    "Bisi Bele Bath",
		FoodType:    models.FoodTypeVeg,
		Quantity:    2,
		Price:       120,
		ServiceType: models.ServiceLunch,
		IsAvailable: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "42", item.ID)
	assert.Equal(t, "Bisi Bele Bath", item.FoodName)
	assert.Equal(t, models.FoodTypeVeg, item.FoodType)
	assert.True(t, item.IsAvailable)
}

func TestDeleteMenuItem(t *testing.T) {
	b := testhelpers.NewBackend(t)
	gw := authedGateway(t, b)

	assert.NoError(t, gw.DeleteMenuItem(context.Background(), "42"))
	assert.NoError(t, gw.DeleteAllMenuItems(context.Background()))

	b.FailMenu = true
	assert.Error(t, gw.DeleteMenuItem(context.Background(), "42"))
}

func TestOrdersFlow(t *testing.T) {
	b := testhelpers.NewBackend(t)
	b.SeedOrder(models.Order{ID: "o1", CustomerName: "Ravi", Status: models.OrderStatusNew, Total: 240})
	gw := authedGateway(t, b)
	ctx := context.Background()

	fresh, err := gw.GetOrders(ctx, gateway.OrdersNew)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "o1", fresh[0].ID)

	require.NoError(t, gw.UpdateOrderStatus(ctx, "o1", models.OrderStatusAccepted))

	order, err := gw.GetOrderDetails(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, order.Status)

	ongoing, err := gw.GetOrders(ctx, gateway.OrdersOngoing)
	require.NoError(t, err)
	assert.Len(t, ongoing, 1)
}

func TestPushLocationSendsStringCoordinates(t *testing.T) {
	b := testhelpers.NewBackend(t)
	gw := authedGateway(t, b)

	require.NoError(t, gw.PushLocation(context.Background(), 12.95, 77.6))

	require.Len(t, b.PushedLocations, 1)
	assert.Equal(t, 12.95, *b.PushedLocations[0].Latitude)
	assert.Equal(t, 77.6, *b.PushedLocations[0].Longitude)

	b.FailLocation = true
	assert.Error(t, gw.PushLocation(context.Background(), 12.95, 77.6))
}

func TestReverseGeocode(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "12.95", r.URL.Query().Get("lat"))
		assert.Equal(t, "77.6", r.URL.Query().Get("lon"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Jayanagar, Bengaluru, Karnataka"}`))
	}))
	defer geo.Close()

	gw := gateway.NewHTTPGateway("", geo.URL, 5*time.Second, nil)
	addr, err := gw.ReverseGeocode(context.Background(), 12.95, 77.6)
	require.NoError(t, err)
	assert.Equal(t, "Jayanagar, Bengaluru, Karnataka", addr)
}

func TestReverseGeocodeMissingAddress(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer geo.Close()

	gw := gateway.NewHTTPGateway("", geo.URL, 5*time.Second, nil)
	_, err := gw.ReverseGeocode(context.Background(), 12.95, 77.6)
	assert.Error(t, err)
}
