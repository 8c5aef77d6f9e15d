package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"gridarena/internal/config"
	"gridarena/internal/game"
	"gridarena/internal/httpapi"
	"gridarena/internal/lobby"
	"gridarena/internal/matchmaking"
	"gridarena/internal/metrics"
	"gridarena/internal/registry"
	"gridarena/internal/transport"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prom := prometheus.NewRegistry()
	met := metrics.New(prom)

	reg := registry.New(log)
	sessions := game.NewStore(reg, cfg.SettleDelay, met, log)
	rooms := lobby.NewCoordinator(reg, sessions, met, log)
	queue := matchmaking.NewManager(reg, rooms, cfg.MatchTimeout, cfg.DefaultMatchSize, met, log)

	handler := httpapi.SetupRoutes(transport.Deps{
		Registry:    reg,
		Matchmaking: queue,
		Lobby:       rooms,
		Sessions:    sessions,
		Metrics:     met,
		Log:         log,
	}, prom)

	log.Info("listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
