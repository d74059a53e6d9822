// chefctl is a thin command-line harness around the chef client core:
// it hydrates the local session, and can log in, print the profile,
// list the menu, or run the location watcher against a real device
// stream substitute.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urbanrasoi/chef-client/config"
	"github.com/urbanrasoi/chef-client/internal/chef"
	"github.com/urbanrasoi/chef-client/internal/gateway"
	"github.com/urbanrasoi/chef-client/internal/location"
	"github.com/urbanrasoi/chef-client/internal/orders"
	"github.com/urbanrasoi/chef-client/internal/session"
	"github.com/urbanrasoi/chef-client/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	persist, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Storage error: %v", err)
	}

	chefs := chef.NewStore(chef.Options{Store: persist, BaseURL: cfg.APIBaseURL})
	gw := gateway.NewHTTPGateway(cfg.APIBaseURL, cfg.GeocodeBaseURL, cfg.RequestTimeout, chefs.Token)
	chefs.SetGateway(gw)

	ctx := context.Background()
	chefs.Hydrate(ctx)

	lifecycle := session.NewLifecycle(session.Options{
		Gateway: gw,
		Store:   chefs,
		Policy:  session.CompletenessPolicy{RequireEmail: cfg.RequireEmail},
		OTPCode: cfg.OTPTestCode,
	})
	lifecycle.Resume()

	switch os.Args[1] {
	case "profile":
		printJSON(chefs.Profile())
	case "login":
		if len(os.Args) < 3 {
			log.Fatalf("usage: chefctl login <phone>")
		}
		runLogin(ctx, lifecycle, os.Args[2])
	case "menu":
		printJSON(chefs.Profile().MenuItems)
	case "orders":
		runOrders(ctx, gw)
	case "watch":
		runWatch(ctx, cfg, chefs, gw)
	case "logout":
		lifecycle.Logout(ctx)
		fmt.Println("logged out")
	default:
		usage()
		os.Exit(2)
	}
}

func openStore(cfg *config.Config) (store.PersistentStore, error) {
	if cfg.RedisURL != "" {
		return store.NewRedisStore(cfg.RedisURL, "chef")
	}
	return store.NewSQLiteStore(cfg.SQLitePath)
}

func runLogin(ctx context.Context, lifecycle *session.Lifecycle, phone string) {
	state, err := lifecycle.Login(ctx, phone)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	if state == session.AwaitingVerification {
		fmt.Print("Enter OTP: ")
		var code string
		if _, err := fmt.Scanln(&code); err != nil {
			log.Fatalf("Failed to read OTP: %v", err)
		}
		if state, err = lifecycle.VerifyOTP(ctx, code); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
	}
	fmt.Printf("session state: %s\n", state)
}

func runOrders(ctx context.Context, gw gateway.RemoteGateway) {
	svc := orders.NewOrderService(gw)
	for _, filter := range []gateway.OrderFilter{gateway.OrdersNew, gateway.OrdersOngoing, gateway.OrdersCompleted} {
		list, err := svc.List(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to fetch %s orders: %v", filter, err)
		}
		fmt.Printf("== %s (%d)\n", filter, len(list))
		printJSON(list)
	}
}

func runWatch(ctx context.Context, cfg *config.Config, chefs *chef.ChefStore, gw gateway.RemoteGateway) {
	watcher := location.NewWatcher(location.Options{
		Store:       chefs,
		Gateway:     gw,
		Stream:      jitterStream{region: cfg.Region},
		Permissions: alwaysGranted{},
		Config:      cfg,
	})
	chefs.SetLastFix(watcher.LastFix)

	if err := watcher.Start(ctx); err != nil {
		log.Fatalf("Watcher failed to start: %v", err)
	}
	log.Println("Watching location; Ctrl-C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	watcher.Stop()
	log.Println("Watcher stopped")
}

// jitterStream fakes a device position stream by wandering around the
// middle of the service region. Stands in for platform geolocation,
// which has no headless equivalent.
type jitterStream struct {
	region config.RegionBounds
}

func (s jitterStream) Watch(ctx context.Context) (<-chan location.Fix, error) {
	out := make(chan location.Fix)
	lat := (s.region.MinLat + s.region.MaxLat) / 2
	lng := (s.region.MinLng + s.region.MaxLng) / 2
	go func() {
		defer close(out)
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lat += (rand.Float64() - 0.5) * 0.002
				lng += (rand.Float64() - 0.5) * 0.002
				select {
				case out <- location.Fix{Latitude: lat, Longitude: lng}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type alwaysGranted struct{}

func (alwaysGranted) Request(ctx context.Context) (bool, error) { return true, nil }

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chefctl <profile|login|menu|orders|watch|logout> [args]")
}
