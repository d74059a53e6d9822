// Package location samples the device position stream, clamps fixes to
// the service region, and keeps the domain store and the backend
// current without flooding either.
package location

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/urbanrasoi/chef-client/config"
	"github.com/urbanrasoi/chef-client/internal/chef"
	"github.com/urbanrasoi/chef-client/internal/gateway"
	"github.com/urbanrasoi/chef-client/internal/models"
)

// ErrPermissionDenied is returned by Start when the device refuses the
// location permission. The watcher is terminally Denied afterwards;
// the store's location simply stays at its last known value.
var ErrPermissionDenied = errors.New("location: permission denied")

// State is the watcher lifecycle state.
type State int

const (
	Idle State = iota
	PermissionRequested
	Denied
	Watching
	Stopped
)

// Fix is one raw device position.
type Fix struct {
	Latitude  float64
	Longitude float64
}

// PositionStream is the device geolocation capability. Watch delivers
// fixes until ctx is cancelled.
type PositionStream interface {
	Watch(ctx context.Context) (<-chan Fix, error)
}

// PermissionRequester asks the host platform for location access.
type PermissionRequester interface {
	Request(ctx context.Context) (bool, error)
}

// Watcher drives the clamp/throttle/push pipeline. The continuous
// watch maintains a candidate fix; only Confirm commits the candidate
// (with its address sub-fields) as the profile's location of record.
type Watcher struct {
	store   *chef.ChefStore
	gw      gateway.RemoteGateway
	stream  PositionStream
	perms   PermissionRequester
	region  config.RegionBounds
	minDist float64
	limiter *rate.Limiter

	mu         sync.Mutex
	state      State
	lastFix    *Fix
	lastPushed *Fix
	candidate  models.GeoLocation
	cancel     context.CancelFunc
	done       chan struct{}
}

// Options configures a Watcher.
type Options struct {
	Store       *chef.ChefStore
	Gateway     gateway.RemoteGateway
	Stream      PositionStream
	Permissions PermissionRequester
	Config      *config.Config
}

func NewWatcher(opts Options) *Watcher {
	return &Watcher{
		store:   opts.Store,
		gw:      opts.Gateway,
		stream:  opts.Stream,
		perms:   opts.Permissions,
		region:  opts.Config.Region,
		minDist: opts.Config.LocationMinDistance,
		limiter: rate.NewLimiter(rate.Every(opts.Config.LocationMinInterval), 1),
		state:   Idle,
	}
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastFix reports the most recent accepted fix. Satisfies
// chef.LastFixFunc via a method value.
func (w *Watcher) LastFix() (lat, lng float64, address string, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastFix == nil {
		return 0, 0, "", false
	}
	return w.lastFix.Latitude, w.lastFix.Longitude, w.candidate.FullAddress, true
}

// Start requests permission and begins consuming the position stream.
// Denial is terminal for this watcher; no automatic retries.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.state != Idle {
		w.mu.Unlock()
		return errors.New("location: watcher already started")
	}
	w.state = PermissionRequested
	w.mu.Unlock()

	granted, err := w.perms.Request(ctx)
	if err != nil || !granted {
		w.mu.Lock()
		w.state = Denied
		w.mu.Unlock()
		if err != nil {
			log.Printf("[LocationWatcher] Permission request failed: %v", err)
		}
		return ErrPermissionDenied
	}

	watchCtx, cancel := context.WithCancel(ctx)
	fixes, err := w.stream.Watch(watchCtx)
	if err != nil {
		cancel()
		w.mu.Lock()
		w.state = Denied
		w.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	w.mu.Lock()
	w.state = Watching
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	// A single goroutine consumes the stream, so fixes apply in
	// arrival order; rate control drops fixes, never reorders them.
	go func() {
		defer close(done)
		for fix := range fixes {
			w.handleFix(watchCtx, fix)
		}
	}()
	return nil
}

// Stop unsubscribes from the position stream and waits for the
// consumer to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	if w.state == Watching {
		w.state = Stopped
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// handleFix runs the clamp/rate/distance pipeline for one raw fix.
func (w *Watcher) handleFix(ctx context.Context, fix Fix) {
	clamped := Fix{
		Latitude:  clamp(fix.Latitude, w.region.MinLat, w.region.MaxLat),
		Longitude: clamp(fix.Longitude, w.region.MinLng, w.region.MaxLng),
	}

	if !w.limiter.Allow() {
		return
	}

	w.mu.Lock()
	w.lastFix = &clamped
	w.candidate.Latitude = &clamped.Latitude
	w.candidate.Longitude = &clamped.Longitude
	shouldPush := w.lastPushed == nil ||
		haversineMeters(*w.lastPushed, clamped) > w.minDist
	w.mu.Unlock()

	// Local truth first, always.
	w.store.ApplyLocationFix(ctx, clamped.Latitude, clamped.Longitude)

	if shouldPush {
		go w.push(ctx, clamped)
	}
}

// push sends an accepted fix upstream and resolves its address.
// Failures are logged only: the local coordinate is already committed
// and is never rolled back.
func (w *Watcher) push(ctx context.Context, fix Fix) {
	if err := w.gw.PushLocation(ctx, fix.Latitude, fix.Longitude); err != nil {
		log.Printf("[LocationWatcher] Location push failed: %v", err)
		return
	}

	w.mu.Lock()
	w.lastPushed = &fix
	w.mu.Unlock()

	address, err := w.gw.ReverseGeocode(ctx, fix.Latitude, fix.Longitude)
	if err != nil {
		log.Printf("[LocationWatcher] Reverse geocode failed: %v", err)
		return
	}

	w.mu.Lock()
	w.candidate.FullAddress = address
	w.mu.Unlock()

	w.store.SetLocationAddress(ctx, address)
}

// SetManualFix treats a dragged marker or typed address as an explicit
// fix through the same clamp-and-push pipeline. It updates the
// candidate only; Confirm commits it.
func (w *Watcher) SetManualFix(ctx context.Context, lat, lng float64, flat, landmark, area string) {
	clamped := Fix{
		Latitude:  clamp(lat, w.region.MinLat, w.region.MaxLat),
		Longitude: clamp(lng, w.region.MinLng, w.region.MaxLng),
	}

	w.mu.Lock()
	w.lastFix = &clamped
	w.candidate.Latitude = &clamped.Latitude
	w.candidate.Longitude = &clamped.Longitude
	w.candidate.Flat = flat
	w.candidate.Landmark = landmark
	w.candidate.Area = area
	w.mu.Unlock()

	w.store.ApplyLocationFix(ctx, clamped.Latitude, clamped.Longitude)
	go w.push(ctx, clamped)
}

// Candidate returns a copy of the current candidate fix.
func (w *Watcher) Candidate() models.GeoLocation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyLocation(w.candidate)
}

// Confirm commits the candidate fix as the profile's location of
// record. It is the only path that does so.
func (w *Watcher) Confirm(ctx context.Context) {
	w.mu.Lock()
	loc := copyLocation(w.candidate)
	w.mu.Unlock()
	w.store.ConfirmLocation(ctx, loc)
}

func copyLocation(loc models.GeoLocation) models.GeoLocation {
	out := loc
	if loc.Latitude != nil {
		lat := *loc.Latitude
		out.Latitude = &lat
	}
	if loc.Longitude != nil {
		lng := *loc.Longitude
		out.Longitude = &lng
	}
	return out
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(v, max))
}

// haversineMeters returns the great-circle distance between two fixes.
func haversineMeters(a, b Fix) float64 {
	const earthRadius = 6371000.0
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
