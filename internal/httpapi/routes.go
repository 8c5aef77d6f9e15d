package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridarena/internal/transport"
)

func SetupRoutes(d transport.Deps, prom *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Get("/ws", transport.Handler(d))
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(prom, promhttp.HandlerOpts{}))
	return r
}
