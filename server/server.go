package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"labcomm/auth"
	"labcomm/feeds"
	"labcomm/monitoring"
	"labcomm/registry"
	"labcomm/utils"
	"net/http"
	"time"
)

const (
	maxFormBytes    = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Pages maps a GET route to the aggregation page rendered there.
type Pages map[string]feeds.Page

type Server struct {
	addr       string
	userHeader string
	registry   *registry.Registry
	pages      Pages
	pinger     Pinger
	mux        *http.ServeMux
}

func NewServer(addr string, userHeader string, reg *registry.Registry, pages Pages, pinger Pinger) *Server {
	s := &Server{
		addr:       addr,
		userHeader: userHeader,
		registry:   reg,
		pages:      pages,
		pinger:     pinger,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	for route, page := range s.pages {
		s.mux.Handle("GET "+route+"{$}", s.pageHandler(page))
	}

	s.mux.HandleFunc("GET /contact/{$}", s.listAddresses)
	s.mux.HandleFunc("GET /location/{$}", s.listLocations)
	s.mux.HandleFunc("GET /posts/{$}", s.listPosts)
	s.mux.HandleFunc("POST /posts/new/{$}", s.createPost)
	s.mux.HandleFunc("GET /posts/{slug}/{$}", s.postDetail)
	s.mux.HandleFunc("POST /posts/{slug}/edit/{$}", s.updatePost)
	s.mux.HandleFunc("POST /posts/{slug}/delete/{$}", s.deletePost)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.healthz)
}

// Handler returns the routes wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	pattern := func(r *http.Request) string {
		_, p := s.mux.Handler(r)
		return p
	}
	return requestID(monitoring.NewPrometheusMiddleware(recoverer(s.mux), pattern))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Infof("Listening on %s", s.addr)
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error starting server: %w", err)
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (s *Server) pageHandler(page feeds.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, http.StatusOK, page.Context(r.Context()))
	}
}

func (s *Server) listAddresses(w http.ResponseWriter, r *http.Request) {
	result, err := s.registry.ListAddresses(r.Context())
	if err != nil {
		sendRegistryError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	result, err := s.registry.ListLocations(r.Context())
	if err != nil {
		sendRegistryError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	result, err := s.registry.ListPosts(r.Context())
	if err != nil {
		sendRegistryError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) postDetail(w http.ResponseWriter, r *http.Request) {
	result, err := s.registry.PostDetail(r.Context(), r.PathValue("slug"))
	if err != nil {
		sendRegistryError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	input, err := readPostInput(w, r)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := s.registry.CreatePost(r.Context(), auth.UserFromRequest(r, s.userHeader), input)
	if err != nil {
		sendRegistryError(w, err)
		return
	}
	http.Redirect(w, r, registry.PostURL(post.Slug), http.StatusFound)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	input, err := readPostInput(w, r)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := s.registry.UpdatePost(r.Context(), auth.UserFromRequest(r, s.userHeader), r.PathValue("slug"), input)
	if err != nil {
		sendRegistryError(w, err)
		return
	}
	http.Redirect(w, r, registry.PostURL(post.Slug), http.StatusFound)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	redirect, err := s.registry.DeletePost(r.Context(), auth.UserFromRequest(r, s.userHeader), r.PathValue("slug"))
	if err != nil {
		sendRegistryError(w, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			log.Errorf("Health check failed: %v", err)
			sendError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestID tags every request and its response with an X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"duration":   time.Since(start),
		}).Debug("Request served")
	})
}

// writeTracker remembers whether a response has been started.
type writeTracker struct {
	http.ResponseWriter
	written bool
}

func (t *writeTracker) WriteHeader(status int) {
	t.written = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *writeTracker) Write(b []byte) (int, error) {
	t.written = true
	return t.ResponseWriter.Write(b)
}

// recoverer answers 500 for a panicking handler, unless the handler already
// started its response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracker := &writeTracker{ResponseWriter: w}
		panicked := utils.Recoverer(r.Method+" "+r.URL.Path, func() {
			next.ServeHTTP(tracker, r)
		})
		if panicked && !tracker.written {
			sendError(w, http.StatusInternalServerError, "internal server error")
		}
	})
}
