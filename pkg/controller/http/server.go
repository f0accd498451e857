package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
	"github.com/secmon-lab/tickerchat/pkg/utils/safe"
)

type Server struct {
	router   *chi.Mux
	chat     ChatUseCase
	identity usecase.IdentityProvider
}

type Options func(*Server)

// WithIdentity sets how callers are resolved. Without it every caller is anonymous.
func WithIdentity(identity usecase.IdentityProvider) Options {
	return func(s *Server) {
		s.identity = identity
	}
}

func New(chat ChatUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		chat:     chat,
		identity: usecase.AnonymousIdentity{},
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	handler := newChatHandler(s.chat)
	for _, path := range []string{"/api/chat", "/chat"} {
		r.Route(path, func(r chi.Router) {
			r.Use(identityMiddleware(s.identity))
			r.Post("/", handler.post)
			r.Get("/", handler.get)
			r.Delete("/", handler.delete)
		})
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests and puts a request scoped
// logger into the context
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	safe.WriteString(r.Context(), w, "ok")
}
