package main

import (
	"context"
	"os"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/logging"
	vendorrepo "storefront-cart/internal/repository/vendor"
	"storefront-cart/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).With("component", "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	vendors, err := seed.Apply(ctx, vendorrepo.NewPostgres(pool))
	if err != nil {
		logger.Error("seed apply", "err", err)
		pool.Close()
		os.Exit(1)
	}

	for _, v := range vendors {
		logger.Info("vendor ready", "slug", v.Slug, "id", v.ID)
	}
}
