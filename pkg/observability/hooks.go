// Package observability lets callers watch the render pipeline without the
// pipeline depending on a metrics or tracing backend.
//
// There are three hook sets: [RenderHooks] for pipeline state transitions,
// [CacheHooks] for artifact cache traffic and [HTTPHooks] for the server.
// Each defaults to a no-op. Register implementations once at startup:
//
//	observability.SetRenderHooks(observability.LogHooks{Logger: logger})
//
// and the pipeline reports through the package accessors:
//
//	observability.Render().OnStateChange(ctx, "compiling")
//
// [LogHooks] is the bundled implementation; `tikzcell -v` registers it.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// RenderHooks receives events from the compile-and-render pipeline.
type RenderHooks interface {
	// OnRenderStart is called once per request, after validation.
	OnRenderStart(ctx context.Context, engine string, dpi int)

	// OnStateChange is called on every pipeline state transition
	// (idle, template_assembled, compiling, ..., cleaned).
	OnStateChange(ctx context.Context, state string)

	// OnRenderComplete is called once per request after cleanup.
	OnRenderComplete(ctx context.Context, engine string, duration time.Duration, err error)
}

// CacheHooks receives artifact cache events. keyType labels the kind of
// entry ("render").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// NoopRenderHooks ignores every event. Embed it to implement a subset.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnRenderStart(context.Context, string, int)                     {}
func (NoopRenderHooks) OnStateChange(context.Context, string)                          {}
func (NoopRenderHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// slot holds one registered hook set. Reads are lock-free because every
// render reports several state changes.
type slot[T any] struct {
	p atomic.Pointer[T]
}

func (s *slot[T]) get(fallback T) T {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return fallback
}

func (s *slot[T]) set(h T) { s.p.Store(&h) }

var (
	renderSlot slot[RenderHooks]
	cacheSlot  slot[CacheHooks]
	httpSlot   slot[HTTPHooks]
)

// SetRenderHooks registers render hooks. A nil h is ignored.
func SetRenderHooks(h RenderHooks) {
	if h != nil {
		renderSlot.set(h)
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheSlot.set(h)
	}
}

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		httpSlot.set(h)
	}
}

// Render returns the registered render hooks.
func Render() RenderHooks { return renderSlot.get(NoopRenderHooks{}) }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.get(NoopCacheHooks{}) }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.get(NoopHTTPHooks{}) }

// Reset restores the no-op hooks. Tests that register hooks call it in
// cleanup.
func Reset() {
	renderSlot.p.Store(nil)
	cacheSlot.p.Store(nil)
	httpSlot.p.Store(nil)
}
