package server

import (
	"context"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/iishyfishyy/shoefinder/internal/catalog"
	"github.com/iishyfishyy/shoefinder/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Options configure the HTTP API
type Options struct {
	// TopK is the similarity result count when a request gives none
	TopK    int
	Workers int
	// RateLimit is requests per second across all API clients; 0 disables it
	RateLimit float64
	Burst     int
	// AccessLog enables fiber's request logger
	AccessLog bool
	Debug     bool
}

// Server exposes the catalog and the rankers over HTTP
type Server struct {
	app   *fiber.App
	debug bool
}

// New builds the fiber app and its routes
func New(store catalog.Store, opts Options) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "shoefinder",
		DisableStartupMessage: true,
	})
	if opts.AccessLog {
		app.Use(logger.New())
	}

	handler := NewHandler(store, opts)

	app.Get("/healthz", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	if opts.RateLimit > 0 {
		api.Use(rateLimiter(rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst)))
	}

	api.Post("/rank/similarity", handler.RankSimilarity)
	api.Post("/rank/colors", handler.RankColors)

	items := api.Group("/items")
	items.Get("/", handler.ListItems)
	items.Post("/", handler.CreateItem)
	items.Get("/:id", handler.GetItem)
	items.Put("/:id", handler.PutItem)
	items.Delete("/:id", handler.DeleteItem)

	if opts.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Server: routes registered (rate_limit=%.1f/s, burst=%d)\n", opts.RateLimit, opts.Burst)
	}

	return &Server{app: app, debug: opts.Debug}
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if s.debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Server: shutting down\n")
		}
		return s.app.Shutdown()
	}
}

func rateLimiter(limiter *rate.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			metrics.RateLimited.Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
