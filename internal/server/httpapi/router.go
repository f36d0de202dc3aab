// Package httpapi exposes the action dispatcher, the public listings and the
// uploaded images over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server/api"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req api.Request, token string) *api.Result
}

type ImageOpener interface {
	Open(ctx context.Context, filepath string) ([]byte, error)
}

// Options configures the router. Metrics may be nil.
type Options struct {
	Dispatcher     Dispatcher
	Images         ImageOpener
	Metrics        http.Handler
	Logger         logging.Logger
	AllowedOrigins []string
	MaxBodyBytes   int64
	SessionTTL     time.Duration
}

type Router struct {
	opts   Options
	logger logging.Logger
}

func NewRouter(opts Options) *Router {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Router{opts: opts, logger: opts.Logger.With("module", "http")}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !allowsAny(rt.opts.AllowedOrigins),
		MaxAge:           300,
	}))

	router.Get("/healthz", rt.healthCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics)
	}

	router.Route("/api", func(r chi.Router) {
		r.Post("/", rt.handleAction)
		r.Get("/categories", rt.listing("getCategories"))
		r.Get("/websites", rt.listing("getAllWebsites"))
	})

	router.Get("/"+common.ImagePrefix+"*", rt.serveImage)

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (rt *Router) handleAction(w http.ResponseWriter, r *http.Request) {
	if rt.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxBodyBytes)
	}

	var req api.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(api.Response{Message: "Invalid request body"})
		return
	}

	res := rt.opts.Dispatcher.Dispatch(r.Context(), req, sessionToken(r))

	switch {
	case res.Token != "":
		http.SetCookie(w, rt.sessionCookie(r, res.Token, int(rt.opts.SessionTTL.Seconds())))
	case res.ClearSession:
		http.SetCookie(w, rt.sessionCookie(r, "", -1))
	}

	writeJSON(w, res.Body)
}

func (rt *Router) listing(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := rt.opts.Dispatcher.Dispatch(r.Context(), api.Request{Action: action}, sessionToken(r))
		writeJSON(w, res.Body)
	}
}

func (rt *Router) serveImage(w http.ResponseWriter, r *http.Request) {
	path := common.ImagePrefix + chi.URLParam(r, "*")

	data, err := rt.opts.Images.Open(r.Context(), path)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		rt.logger.Error(r.Context(), "serve image", "path", path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func (rt *Router) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionToken prefers an explicit bearer token over the cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, found := strings.CutPrefix(h, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(common.SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
