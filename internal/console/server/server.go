package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/statindicator/internal/console/handler"
	"github.com/xela07ax/statindicator/internal/domain"
	"github.com/xela07ax/statindicator/internal/infra/auth"
	"go.uber.org/zap"
)

type APIServer struct {
	router *chi.Mux
	logger *zap.Logger

	// nil — запись без авторизации (локальный режим)
	authValidator auth.TokenValidator

	widgetHandler     *handler.WidgetHandler     // /v1/widgets
	dataSourceHandler *handler.DataSourceHandler // /v1/datasources
}

func NewAPIServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	widgetH *handler.WidgetHandler,
	dsH *handler.DataSourceHandler,
) *APIServer {
	s := &APIServer{
		router:            chi.NewRouter(),
		logger:            logger.Named("api"),
		authValidator:     validator,
		widgetHandler:     widgetH,
		dataSourceHandler: dsH,
	}
	if validator == nil {
		s.logger.Warn("auth public key is not configured, write endpoints are open")
	}

	s.routes()
	return s
}

func (s *APIServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(TracingMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// --- 2. Чтение открыто, запись требует RS256 токен со scope widgets:write ---
	write := s.requireWrite()

	r.Route("/v1/widgets", func(r chi.Router) {
		r.Get("/", s.widgetHandler.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.widgetHandler.Get)
			r.Post("/refresh", s.widgetHandler.Refresh) // Ручной refresh не меняет данные
			r.Get("/settings", s.widgetHandler.GetSettings)

			r.With(write).Put("/settings", s.widgetHandler.PutSettings)
			r.With(write).Delete("/", s.widgetHandler.Delete)
		})
	})

	r.Route("/v1/datasources", func(r chi.Router) {
		r.Get("/", s.dataSourceHandler.List)
		r.With(write).Post("/{id}/changes", s.dataSourceHandler.Changes)
	})
}

func (s *APIServer) requireWrite() func(http.Handler) http.Handler {
	if s.authValidator == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.RequireScope(s.authValidator, domain.ScopeWidgetsWrite, s.logger)
}

// ServeHTTP позволяет использовать APIServer как стандартный http.Handler
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
