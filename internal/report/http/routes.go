package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/enerdash/enerdash/internal/shared"
)

// MountRoutes registers the report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/combined", h.handleCombined)
	r.Get("/combined/latest", h.handleLatest)
	r.Get("/combined/preview.svg", h.handlePreview)
	r.Get("/combined/series/{key}/preview.svg", h.handleSeriesPreview)
	r.Get("/{source}", h.handleSource)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/combined/export.csv", h.handleCSV)
		gr.Get("/combined/export.xlsx", h.handleXLSX)
		gr.Get("/{source}/export.csv", h.handleSourceCSV)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if caller := shared.CallerFromContext(r.Context()); caller != nil {
		return "user:" + caller.Email, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
