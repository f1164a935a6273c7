package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wonny/freightcast/backend/internal/api/handlers"
)

// RouterConfig 미들웨어 설정
type RouterConfig struct {
	Limiter            Limiter // nil: 제한 없음
	RateLimitPerMinute int
	Observer           HTTPObserver
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h *handlers.FreightHandler, cfg RouterConfig, log zerolog.Logger) http.Handler {
	log = log.With().Str("component", "api.router").Logger()
	r := mux.NewRouter()

	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/predict", h.Predict).Methods(http.MethodGet)
	api.HandleFunc("/bulk-predict", h.BulkPredict).Methods(http.MethodPost)
	api.HandleFunc("/historical/{route}", h.Historical).Methods(http.MethodGet)
	api.HandleFunc("/carriers/{carrier}", h.Carrier).Methods(http.MethodGet)
	api.HandleFunc("/routes", h.Routes).Methods(http.MethodGet)
	api.HandleFunc("/forecasts/{route}", h.Forecasts).Methods(http.MethodGet)

	if cfg.Limiter != nil {
		api.Use(rateLimitMiddleware(cfg.Limiter, cfg.RateLimitPerMinute, log))
	}

	r.Use(loggingMiddleware(log, cfg.Observer))
	r.Use(recoveryMiddleware(log))

	// preflight 는 라우트 매칭 전에 처리
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})(r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
