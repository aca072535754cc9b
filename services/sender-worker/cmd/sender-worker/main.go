package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Mutter0815/mailflow/internal/store"
	"github.com/Mutter0815/mailflow/pkg/config"
	"github.com/Mutter0815/mailflow/pkg/db"
	"github.com/Mutter0815/mailflow/pkg/logx"
	"github.com/Mutter0815/mailflow/pkg/rmq"
	"github.com/Mutter0815/mailflow/services/sender-worker/worker"
)

func main() {
	logx.Init()
	defer logx.Sync()

	config.MustLoadWorker()
	cfg := config.Worker

	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		logx.L().Fatalw("db_open_error", "error", err)
	}
	defer sqlDB.Close()

	st := store.New(sqlDB)

	cons, err := rmq.NewConsumer(cfg.RMQURL, cfg.Queue, cfg.Prefetch)
	if err != nil {
		logx.L().Fatalw("rmq_consumer_error", "error", err)
	}
	defer cons.Close()

	pub, err := rmq.NewPublisher(cfg.RMQURL, cfg.Queue)
	if err != nil {
		logx.L().Fatalw("rmq_publisher_error", "error", err)
	}
	defer pub.Close()

	w := worker.New(st, cons, pub, worker.LogSender{FailRate: cfg.FailRate}, cfg.MaxRetries)
	d := worker.NewDispatcher(st, pub, cfg.PollInterval, cfg.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return d.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logx.L().Errorw("worker_exit_error", "error", err)
		return
	}
	logx.L().Infow("worker_stopped")
}
