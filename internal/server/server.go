// Package server собирает HTTP-поверхность движка наград:
// маршрутизация, промежуточные обработчики и жизненный цикл http.Server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"lumoplay.ru/engagement-api/internal/config"
	"lumoplay.ru/engagement-api/internal/features/admin"
	"lumoplay.ru/engagement-api/internal/features/ads"
	"lumoplay.ru/engagement-api/internal/features/daily"
	"lumoplay.ru/engagement-api/internal/features/profile"
	"lumoplay.ru/engagement-api/internal/features/spin"
	"lumoplay.ru/engagement-api/internal/server/httperr"
	"lumoplay.ru/engagement-api/internal/server/middleware"
)

// Handlers — все HTTP-обработчики, которые монтирует сервер.
type Handlers struct {
	Profile *profile.Handler
	Daily   *daily.Handler
	Spin    *spin.Handler
	Ads     *ads.Handler
	Admin   *admin.Handler
}

// Server — HTTP-сервер движка наград.
type Server struct {
	httpServer  *http.Server
	rateLimiter *middleware.RateLimiter
}

// New собирает маршрутизатор и настраивает http.Server.
// Фичи за выключенными флагами просто не монтируются: клиент получает 404.
func New(cfg *config.Config, h Handlers) *Server {
	rl := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Recover)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Use(rl.Middleware)

			r.Get("/profile", h.Profile.HandleGet)

			if cfg.FeatureDailyEnabled {
				r.Get("/daily", h.Daily.HandleStatus)
				r.Post("/daily/claim", h.Daily.HandleClaim)
			}
			if cfg.FeatureSpinEnabled {
				r.Post("/spin", h.Spin.HandleSpin)
				r.Get("/spin/outcomes/{outcomeID}", h.Spin.HandleGetOutcome)
			}
			if cfg.FeatureAdsEnabled {
				r.Get("/ads/status", h.Ads.HandleStatus)
				r.Post("/ads/show", h.Ads.HandleShow)
				r.Post("/ads/events", h.Ads.HandleEvent)
			}
		})

		// Админ-операции защищены токеном, а не пользовательским лимитом
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/admin/grant", h.Admin.HandleGrant)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
		},
		rateLimiter: rl,
	}
}

// Start запускает сервер и блокируется до отмены контекста.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("HTTP-сервер запущен")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.rateLimiter.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info("HTTP-сервер остановлен")
		return nil
	}
}
