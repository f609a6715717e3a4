package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"tickethold/service"
)

type config struct {
	HTTPAddr    string
	PostgresURL string
	RedisAddr   string
}

func loadConfig() (config, error) {
	// missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg := config{
		HTTPAddr:    os.Getenv("HTTP_ADDR"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.PostgresURL == "" {
		return config{}, fmt.Errorf("POSTGRES_URL must be set")
	}
	if cfg.RedisAddr == "" {
		return config{}, fmt.Errorf("REDIS_ADDR must be set")
	}

	return cfg, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	dbConn, err := sqlx.Open("postgres", cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer redisClient.Close()

	err = service.New(cfg.HTTPAddr, dbConn, redisClient).Run(ctx)
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("service stopped with error")
		os.Exit(1)
	}
}
