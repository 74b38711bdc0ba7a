package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"capture-relay/internal/capture"
	"capture-relay/internal/config"
	"capture-relay/internal/geoip"
	"capture-relay/internal/storage"
	"capture-relay/internal/telegram"
)

type CaptureHandler struct {
	locator  geoip.Locator
	store    storage.Store
	notifier telegram.Notifier
	maxBody  int64
	now      func() time.Time
	logger   *zap.Logger
}

func NewCaptureHandler(cfg config.Config, locator geoip.Locator, store storage.Store, notifier telegram.Notifier, logger *zap.Logger) *CaptureHandler {
	return &CaptureHandler{
		locator:  locator,
		store:    store,
		notifier: notifier,
		maxBody:  cfg.MaxBodyBytes,
		now:      time.Now,
		logger:   logger.Named("capture"),
	}
}

// ServeHTTP runs the capture pipeline. Geolocation, persistence and the
// notification are best-effort: their failures are logged and the caller
// always gets 200 OK.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := capture.FromHTTP(r, h.maxBody, h.now())
	logger := h.logger.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("ip", req.ClientIP),
	)

	// A client hanging up must not cancel the side effects.
	ctx := context.WithoutCancel(r.Context())

	info, err := h.locator.Lookup(ctx, req.ClientIP)
	if err != nil {
		logger.Warn("geolocation lookup failed", zap.Error(err))
		info = nil
	}

	summary := capture.Summary(req, info)

	path, err := h.store.Save(ctx, storage.NewRecord(req, info))
	if err != nil {
		logger.Error("failed to persist request", zap.Error(err))
	}
	if path != "" {
		logger.Info("request persisted", zap.String("path", path))
	}

	if err := h.notifier.Send(ctx, summary); err != nil {
		logger.Warn("notification not delivered", zap.Error(err))
	}

	logger.Info("request captured", zap.String("method", req.Method), zap.String("path", req.Path))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
