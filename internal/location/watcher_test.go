package location_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanrasoi/chef-client/config"
	"github.com/urbanrasoi/chef-client/internal/chef"
	"github.com/urbanrasoi/chef-client/internal/location"
	"github.com/urbanrasoi/chef-client/internal/store"
	"github.com/urbanrasoi/chef-client/internal/testhelpers"
)

// fakeStream hands out a test-controlled fix channel.
type fakeStream struct {
	ch chan location.Fix
}

func (f *fakeStream) Watch(ctx context.Context) (<-chan location.Fix, error) {
	return f.ch, nil
}

type fakePerms struct {
	granted bool
}

func (f *fakePerms) Request(ctx context.Context) (bool, error) {
	return f.granted, nil
}

// pushRecorder collects pushed coordinates behind a mutex so the
// watcher's async push goroutines can be observed safely.
type pushRecorder struct {
	mu     sync.Mutex
	pushes []location.Fix
	err    error
}

func (r *pushRecorder) push(ctx context.Context, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.pushes = append(r.pushes, location.Fix{Latitude: lat, Longitude: lng})
	return nil
}

func (r *pushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *pushRecorder) at(i int) location.Fix {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes[i]
}

func watcherConfig(interval time.Duration, minDist float64) *config.Config {
	return &config.Config{
		Region:              config.BengaluruBounds,
		LocationMinInterval: interval,
		LocationMinDistance: minDist,
	}
}

func newWatcherFixture(t *testing.T, cfg *config.Config, rec *pushRecorder) (*location.Watcher, *chef.ChefStore, *fakeStream) {
	t.Helper()
	gw := &testhelpers.StubGateway{
		PushLocationFn: rec.push,
		ReverseGeocodeFn: func(ctx context.Context, lat, lng float64) (string, error) {
			return "Jayanagar, Bengaluru", nil
		},
	}
	chefs := chef.NewStore(chef.Options{Gateway: gw, Store: store.NewMemoryStore()})
	stream := &fakeStream{ch: make(chan location.Fix, 8)}
	w := location.NewWatcher(location.Options{
		Store:       chefs,
		Gateway:     gw,
		Stream:      stream,
		Permissions: &fakePerms{granted: true},
		Config:      cfg,
	})
	return w, chefs, stream
}

func waitForCoords(t *testing.T, chefs *chef.ChefStore, lat, lng float64) {
	t.Helper()
	require.Eventually(t, func() bool {
		loc := chefs.Profile().Location
		return loc.HasCoordinates() && *loc.Latitude == lat && *loc.Longitude == lng
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartPermissionDenied(t *testing.T) {
	rec := &pushRecorder{}
	w, _, _ := newWatcherFixture(t, watcherConfig(0, 10), rec)

	denied := location.NewWatcher(location.Options{
		Store:       chef.NewStore(chef.Options{Store: store.NewMemoryStore()}),
		Gateway:     &testhelpers.StubGateway{},
		Stream:      &fakeStream{ch: make(chan location.Fix)},
		Permissions: &fakePerms{granted: false},
		Config:      watcherConfig(0, 10),
	})
	err := denied.Start(context.Background())
	assert.ErrorIs(t, err, location.ErrPermissionDenied)
	assert.Equal(t, location.Denied, denied.State())

	// A granted watcher moves to Watching.
	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, location.Watching, w.State())
}

func TestFixOutsideRegionIsClamped(t *testing.T) {
	rec := &pushRecorder{}
	w, chefs, stream := newWatcherFixture(t, watcherConfig(0, 10), rec)
	require.NoError(t, w.Start(context.Background()))

	stream.ch <- location.Fix{Latitude: 13.50, Longitude: 77.90}
	waitForCoords(t, chefs, 13.139, 77.77)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, location.Fix{Latitude: 13.139, Longitude: 77.77}, rec.at(0))

	close(stream.ch)
	w.Stop()
	assert.Equal(t, location.Stopped, w.State())
}

func TestRateControlDropsRapidFixes(t *testing.T) {
	rec := &pushRecorder{}
	w, chefs, stream := newWatcherFixture(t, watcherConfig(time.Hour, 10), rec)
	require.NoError(t, w.Start(context.Background()))

	stream.ch <- location.Fix{Latitude: 12.95, Longitude: 77.60}
	waitForCoords(t, chefs, 12.95, 77.60)
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Inside the rate window the second fix is dropped, not queued.
	stream.ch <- location.Fix{Latitude: 12.96, Longitude: 77.61}
	close(stream.ch)
	w.Stop()

	loc := chefs.Profile().Location
	assert.Equal(t, 12.95, *loc.Latitude)
	assert.Equal(t, 77.60, *loc.Longitude)
	assert.Equal(t, 1, rec.count())
}

func TestMinDistanceGatesPushesNotLocalState(t *testing.T) {
	rec := &pushRecorder{}
	w, chefs, stream := newWatcherFixture(t, watcherConfig(0, 10), rec)
	require.NoError(t, w.Start(context.Background()))

	stream.ch <- location.Fix{Latitude: 12.95, Longitude: 77.60}
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Roughly two meters north: applied locally, below the push gate.
	stream.ch <- location.Fix{Latitude: 12.95002, Longitude: 77.60}
	waitForCoords(t, chefs, 12.95002, 77.60)

	// Roughly one kilometer away: pushed again.
	stream.ch <- location.Fix{Latitude: 12.96, Longitude: 77.60}
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, location.Fix{Latitude: 12.96, Longitude: 77.60}, rec.at(1))

	close(stream.ch)
	w.Stop()
}

func TestPushFailureKeepsLocalFix(t *testing.T) {
	rec := &pushRecorder{err: assert.AnError}
	w, chefs, stream := newWatcherFixture(t, watcherConfig(0, 10), rec)
	require.NoError(t, w.Start(context.Background()))

	stream.ch <- location.Fix{Latitude: 12.95, Longitude: 77.60}
	waitForCoords(t, chefs, 12.95, 77.60)

	close(stream.ch)
	w.Stop()

	// The local coordinate survives; no address was resolved.
	loc := chefs.Profile().Location
	assert.Equal(t, 12.95, *loc.Latitude)
	assert.Empty(t, loc.FullAddress)
	assert.Equal(t, 0, rec.count())
}

func TestManualFixAndConfirm(t *testing.T) {
	rec := &pushRecorder{}
	w, chefs, _ := newWatcherFixture(t, watcherConfig(0, 10), rec)
	ctx := context.Background()

	w.SetManualFix(ctx, 12.93, 77.58, "Flat 12B", "Near the park", "Jayanagar")
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return w.Candidate().FullAddress == "Jayanagar, Bengaluru"
	}, 2*time.Second, 5*time.Millisecond)

	cand := w.Candidate()
	assert.Equal(t, "Flat 12B", cand.Flat)
	assert.Equal(t, "Near the park", cand.Landmark)
	assert.Equal(t, "Jayanagar", cand.Area)

	// Sub-fields only land on the profile through Confirm.
	before := chefs.Profile().Location
	assert.Empty(t, before.Flat)

	w.Confirm(ctx)
	after := chefs.Profile().Location
	assert.Equal(t, "Flat 12B", after.Flat)
	assert.Equal(t, "Jayanagar, Bengaluru", after.FullAddress)
	assert.Equal(t, 12.93, *after.Latitude)
	assert.Equal(t, 77.58, *after.Longitude)
}

func TestManualFixIsClamped(t *testing.T) {
	rec := &pushRecorder{}
	w, chefs, _ := newWatcherFixture(t, watcherConfig(0, 10), rec)

	w.SetManualFix(context.Background(), 12.0, 77.0, "", "", "")
	loc := chefs.Profile().Location
	assert.Equal(t, 12.834, *loc.Latitude)
	assert.Equal(t, 77.44, *loc.Longitude)
}

func TestLastFixFeedsNormalization(t *testing.T) {
	rec := &pushRecorder{}
	w, chefs, _ := newWatcherFixture(t, watcherConfig(0, 10), rec)
	chefs.SetLastFix(w.LastFix)

	_, _, _, ok := w.LastFix()
	assert.False(t, ok)

	w.SetManualFix(context.Background(), 12.95, 77.60, "", "", "")
	lat, lng, _, ok := w.LastFix()
	require.True(t, ok)
	assert.Equal(t, 12.95, lat)
	assert.Equal(t, 77.60, lng)
}
