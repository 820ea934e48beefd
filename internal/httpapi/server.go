// Package httpapi serves the cached contracts and the derived report over
// HTTP. The records endpoints use the same wire shape the records client
// consumes, so one tabreport instance can feed another.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// Store is the read side of the contract cache.
type Store interface {
	AllRecords(ctx context.Context) ([]revenue.Contract, error)
	PagedRecords(ctx context.Context, limit, offset int) ([]revenue.Contract, error)
	TotalRecords(ctx context.Context) (int, error)
}

type Config struct {
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
	// Token, when set, must be sent as a bearer token on every /api request.
	Token    string
	Currency revenue.CurrencyFormat
	Logger   *zap.Logger
	Now      func() time.Time
}

type Server struct {
	store Store
	cfg   Config
	log   *zap.Logger
}

func New(store Store, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Currency.Code == "" {
		cfg.Currency = revenue.DefaultCurrency
	}
	return &Server{store: store, cfg: cfg, log: log}
}

// Router builds the chi router with every route and middleware mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		s.logRequests,
	)
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.Limit(s.cfg.RateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			}),
		))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/ping", s.handlePing)
		api.Group(func(gr chi.Router) {
			gr.Use(s.requireToken)
			gr.Get("/records", s.handleRecords)
			gr.Get("/records/page", s.handleRecordsPage)
			gr.Get("/records/count", s.handleRecordsCount)
			gr.Get("/report", s.handleReport)
			gr.Get("/report.xlsx", s.handleReportXLSX)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	if s.cfg.Token == "" {
		return next
	}
	want := []byte(s.cfg.Token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
