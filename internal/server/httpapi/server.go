// Package httpapi exposes the catalog and its authentication over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrijs2005/catalogkeeper/internal/logging"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/services"
)

type Server struct {
	address         string
	shutdownTimeout time.Duration
	logger          logging.Logger
	tokens          *auth.TokenManager
	users           *services.UserService
	products        *services.ProductService
	images          *services.ImageService
	metrics         *Metrics
}

type Option func(*Server)

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithImages enables the presigned image upload route.
func WithImages(is *services.ImageService) Option {
	return func(s *Server) { s.images = is }
}

func NewServer(address string, l logging.Logger, tokens *auth.TokenManager, us *services.UserService, ps *services.ProductService, opts ...Option) *Server {
	if l == nil {
		l = logging.Nop{}
	}
	s := &Server{
		address:         address,
		shutdownTimeout: 10 * time.Second,
		logger:          l.With("module", "http_server"),
		tokens:          tokens,
		users:           us,
		products:        ps,
		metrics:         NewMetrics(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Router builds the full handler tree. The API is served both at the root
// and under /api.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSONResponse(w, r, s.logger, http.StatusOK, map[string]string{"status": "OK"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(s.routes)
	r.Route("/api", s.routes)

	return r
}

func (s *Server) routes(r chi.Router) {
	r.Post("/auth/login", s.Login)
	r.Post("/auth/register", s.Register)
	r.With(s.authenticate).Get("/auth/verify", s.Verify)

	r.Get("/products", s.ListProducts)
	r.Get("/products/{id}", s.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.requireRole(models.RoleAdmin))

		r.Post("/products", s.CreateProduct)
		r.Put("/products/{id}", s.UpdateProduct)
		r.Delete("/products/{id}", s.DeleteProduct)
		r.Post("/products/{id}/image-upload-url", s.ImageUploadURL)
		r.Put("/products/{id}/image", s.ConfirmImage)
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
