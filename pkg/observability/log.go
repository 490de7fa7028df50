package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes render, cache and HTTP events to Logger at debug level.
type LogHooks struct {
	Logger *log.Logger
}

func (h LogHooks) OnRenderStart(_ context.Context, engine string, dpi int) {
	h.Logger.Debug("render started", "engine", engine, "dpi", dpi)
}

func (h LogHooks) OnStateChange(_ context.Context, state string) {
	h.Logger.Debug("render state", "state", state)
}

func (h LogHooks) OnRenderComplete(_ context.Context, engine string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("render failed", "engine", engine, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("render finished", "engine", engine, "duration", d)
}

func (h LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h LogHooks) OnRequest(_ context.Context, method, path string) {
	h.Logger.Debug("request", "method", method, "path", path)
}

func (h LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.Logger.Debug("response", "method", method, "path", path, "status", status, "duration", d)
}

var (
	_ RenderHooks = LogHooks{}
	_ CacheHooks  = LogHooks{}
	_ HTTPHooks   = LogHooks{}
)
