package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/httpserver"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/match"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/records"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/settlement"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/store"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	dict, err := words.Load(os.Getenv("DICTIONARY_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dictionary")
	}
	log.Info().Int("words", dict.Len()).Msg("dictionary loaded")

	rec, err := records.Open(getEnv("DB_PATH", "./data/zhuyin.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer rec.Close()

	cfg := game.DefaultConfig()
	cfg.StartSeconds = envInt("START_SECONDS", cfg.StartSeconds)
	cfg.MoveBonusSeconds = envInt("MOVE_BONUS_SECONDS", cfg.MoveBonusSeconds)

	opts := []match.Option{
		match.WithConfig(cfg),
		match.WithRetention(time.Duration(envInt("RETENTION_SECONDS", 60)) * time.Second),
		match.WithSettler(settlement.New(rec)),
		match.WithRegistrar(rec),
	}
	if salt := os.Getenv("BOARD_SEED_SALT"); salt != "" {
		opts = append(opts, match.WithSeedSalt(salt))
	}
	manager := match.New(store.NewMemoryStore(), dict, opts...)
	go manager.Run(context.Background())

	srv := httpserver.New(manager, rec, dict)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting go-server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt reads a positive integer from k, falling back to def.
func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
