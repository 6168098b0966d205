// Package featureflags registers the service's remote flags with Rollout.
// Until Init succeeds every accessor returns the local default.
package featureflags

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rollout/rox-go/v5/server"
)

// Flags is the container registered with Rollout.
type Flags struct {
	Offline           server.RoxFlag
	LogLevel          server.RoxString
	SalesRequireAdmin server.RoxFlag
}

var (
	flags = &Flags{
		Offline:           server.NewRoxFlag(false),
		LogLevel:          server.NewRoxString("info", []string{"debug", "info", "warn", "error"}),
		SalesRequireAdmin: server.NewRoxFlag(false),
	}
	rox      *server.Rox
	ready    atomic.Bool
	defaults atomic.Value // Defaults
)

// Defaults are the values used while Rollout is not connected.
type Defaults struct {
	LogLevel          string
	SalesRequireAdmin bool
}

func init() {
	defaults.Store(Defaults{LogLevel: "info"})
}

// SetDefaults replaces the local fallback values, usually from config.
func SetDefaults(d Defaults) {
	defaults.Store(d)
}

// Init connects to Rollout with apiKey and waits for the first fetch or ctx.
func Init(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("ROLLOUT_KEY not set, using local defaults")
	}

	rox = server.NewRox()
	rox.Register("catalog", flags)

	select {
	case err := <-rox.Setup(apiKey, server.NewRoxOptions(server.RoxOptionsBuilder{})):
		if err != nil {
			return fmt.Errorf("rollout setup: %w", err)
		}
		ready.Store(true)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rollout setup: %w", ctx.Err())
	}
}

// Shutdown stops the Rollout client if it was started and waits for it or ctx.
func Shutdown(ctx context.Context) error {
	ready.Store(false)
	if rox == nil {
		return nil
	}
	select {
	case err := <-rox.Shutdown():
		if err != nil {
			return fmt.Errorf("rollout shutdown: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rollout shutdown: %w", ctx.Err())
	}
}

// Ready reports whether remote values are in use.
func Ready() bool {
	return ready.Load()
}

// Values returns the registered flag container.
func Values() *Flags {
	return flags
}

// Offline reports whether the kill switch is on.
func Offline() bool {
	if !Ready() {
		return false
	}
	return flags.Offline.IsEnabled(nil)
}

// LogLevel returns the desired log level.
func LogLevel() string {
	if !Ready() {
		return defaults.Load().(Defaults).LogLevel
	}
	return flags.LogLevel.GetValue(nil)
}

// SalesRequireAdmin reports whether listing sales needs an admin token.
func SalesRequireAdmin() bool {
	if !Ready() {
		return defaults.Load().(Defaults).SalesRequireAdmin
	}
	return flags.SalesRequireAdmin.IsEnabled(nil)
}

// Snapshot returns the current values for the /_flags endpoint.
func Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"remote":            Ready(),
		"offline":           Offline(),
		"logLevel":          LogLevel(),
		"salesRequireAdmin": SalesRequireAdmin(),
	}
}
