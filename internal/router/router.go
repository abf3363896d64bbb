package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/handlers"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/middleware"
)

type Deps struct {
	Esewa         *handlers.EsewaHandler
	Fare          *handlers.FareHandler
	Health        *handlers.HealthHandler
	RateLimiter   *middleware.RateLimiter
	CallbackToken string
}

func New(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/healthz", d.Health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", d.Health.Readiness).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	callbacks := router.NewRoute().Subrouter()
	if d.RateLimiter != nil {
		callbacks.Use(d.RateLimiter.Middleware)
	}
	callbacks.Use(middleware.CallbackToken(d.CallbackToken))

	callbacks.HandleFunc("/esewa/success", d.Esewa.Success).Methods(http.MethodPost)
	callbacks.HandleFunc("/esewa/failure", d.Esewa.Failure).Methods(http.MethodPost)
	if d.Fare != nil {
		callbacks.HandleFunc("/rfid/tap", d.Fare.Tap).Methods(http.MethodPost)
	}

	return router
}
