// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about spreadsheet exports, marker placement commits, and
// HTTP requests served by the API.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetExportHooks(&myExportHooks{})
//	    observability.SetPlacementHooks(&myPlacementHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Export().OnBuildStart(ctx, len(annotations))
//	// ... build workbook ...
//	observability.Export().OnBuildComplete(ctx, len(annotations), len(doc), duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Export Hooks
// =============================================================================

// ExportHooks receives events from the spreadsheet export pipeline.
type ExportHooks interface {
	// OnPlan records the layout plan computed for one export.
	OnPlan(ctx context.Context, imageWidth, imageHeight int, displayWidth, displayHeight float64, tableStartColumn int)

	// Build events
	OnBuildStart(ctx context.Context, rows int)
	OnBuildComplete(ctx context.Context, rows, size int, duration time.Duration, err error)
}

// =============================================================================
// Placement Hooks
// =============================================================================

// PlacementHooks receives events from the marker placement controller.
type PlacementHooks interface {
	// OnDragStart records a marker entering the dragging state.
	OnDragStart(ctx context.Context, annotationID string)

	// OnCommit records the outcome of a position-update call.
	OnCommit(ctx context.Context, annotationID string, duration time.Duration, err error)

	// OnRollback records a marker being restored to its last known-good position.
	OnRollback(ctx context.Context, annotationID string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API server.
type HTTPHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a completed HTTP response.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnPlan(context.Context, int, int, float64, float64, int)         {}
func (NoopExportHooks) OnBuildStart(context.Context, int)                               {}
func (NoopExportHooks) OnBuildComplete(context.Context, int, int, time.Duration, error) {}

// NoopPlacementHooks is a no-op implementation of PlacementHooks.
type NoopPlacementHooks struct{}

func (NoopPlacementHooks) OnDragStart(context.Context, string)                    {}
func (NoopPlacementHooks) OnCommit(context.Context, string, time.Duration, error) {}
func (NoopPlacementHooks) OnRollback(context.Context, string)                     {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	exportHooks    ExportHooks    = NoopExportHooks{}
	placementHooks PlacementHooks = NoopPlacementHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetExportHooks registers custom export hooks.
// This should be called once at application startup before any export runs.
func SetExportHooks(h ExportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		exportHooks = h
	}
}

// SetPlacementHooks registers custom placement hooks.
func SetPlacementHooks(h PlacementHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		placementHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before the server starts.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Export returns the registered export hooks.
func Export() ExportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return exportHooks
}

// Placement returns the registered placement hooks.
func Placement() PlacementHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return placementHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	exportHooks = NoopExportHooks{}
	placementHooks = NoopPlacementHooks{}
	httpHooks = NoopHTTPHooks{}
}
