package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type APIConfig struct {
	Port   string `env:"PORT,default=8080"`
	DBDSN  string `env:"DB_DSN,required"`
	RMQURL string `env:"RMQ_URL,required"`
	Queue  string `env:"QUEUE,default=send_jobs"`
}

type WorkerConfig struct {
	DBDSN        string        `env:"DB_DSN,required"`
	RMQURL       string        `env:"RMQ_URL,required"`
	Queue        string        `env:"QUEUE,default=send_jobs"`
	Prefetch     int           `env:"RMQ_PREFETCH,default=10"`
	PollInterval time.Duration `env:"DISPATCH_POLL_INTERVAL,default=15s"`
	BatchSize    int           `env:"DISPATCH_BATCH,default=50"`
	MaxRetries   int           `env:"SEND_MAX_RETRIES,default=3"`
	FailRate     float64       `env:"SEND_FAIL_RATE,default=0"`
}

type ClientConfig struct {
	BaseURL string        `env:"MAILFLOW_API_URL,default=http://localhost:8080"`
	Token   string        `env:"MAILFLOW_API_TOKEN"`
	Timeout time.Duration `env:"MAILFLOW_API_TIMEOUT,default=30s"`
}

var (
	API    APIConfig
	Worker WorkerConfig
)

// to help with testing
var envProcess = envconfig.Process

func load(ctx context.Context, dst any) error {
	// .env is optional; variables already in the environment win.
	_ = godotenv.Load()
	if err := envProcess(ctx, dst); err != nil {
		return fmt.Errorf("failed to process env config: %w", err)
	}
	return nil
}

func MustLoadAPI() {
	if err := load(context.Background(), &API); err != nil {
		log.Fatal(err)
	}
}

func MustLoadWorker() {
	if err := load(context.Background(), &Worker); err != nil {
		log.Fatal(err)
	}
}

func LoadClient(ctx context.Context) (ClientConfig, error) {
	var cfg ClientConfig
	if err := load(ctx, &cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
