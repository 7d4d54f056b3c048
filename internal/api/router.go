package api

import (
	"context"
	"library-api/internal/api/handler"
	mw "library-api/internal/api/middleware"
	"library-api/internal/config"
	"library-api/internal/domain/book"
	"library-api/internal/domain/loan"
	"log/slog"
	"net/http"
	"time"

	_ "library-api/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Services struct {
	Books book.BookService
	Loans loan.LoanService
}

// SetupRouter wires every route. The context bounds background work owned by
// middleware; redisClient may be nil.
func SetupRouter(ctx context.Context, svc Services, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(ctx, router, cfg, redisClient, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, cfg, logger)
	setupLibraryRoutes(router, svc, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(ctx context.Context, router *chi.Mux, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(ctx, cfg.Server.RateLimit, redisClient, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(cfg.Server.Auth, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupLibraryRoutes(router *chi.Mux, svc Services, cfg *config.Config, logger *slog.Logger) {
	bookHandler := handler.NewBookHandler(svc.Books, svc.Loans, logger)
	loanHandler := handler.NewLoanHandler(svc.Loans, logger)

	router.Route("/api", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))

		r.Route("/books", func(r chi.Router) {
			r.Post("/", bookHandler.CreateBook)
			r.Get("/", bookHandler.FindBooks)
			r.Route("/{bookID}", func(r chi.Router) {
				r.Get("/", bookHandler.GetBook)
				r.Put("/", bookHandler.UpdateBook)
				r.Delete("/", bookHandler.DeleteBook)
				r.Get("/loans", bookHandler.FindLoansByBook)
			})
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", loanHandler.CreateLoan)
			r.Get("/", loanHandler.FindLoans)
			r.Get("/{loanID}", loanHandler.GetLoan)
			r.Patch("/{loanID}", loanHandler.ReturnLoan)
		})
	})
}
