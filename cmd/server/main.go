package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-night/internal/config"
	"game-night/internal/db"
	"game-night/internal/party"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	cfg := config.Load()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, running without backup persistence")
	} else if conn != nil {
		if err := db.Migrate(conn); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
	}

	srv := party.New(conn, cfg)
	addr := ":" + getEnv("PORT", "8080")
	log.Info().Str("addr", addr).Msg("game-night server listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
