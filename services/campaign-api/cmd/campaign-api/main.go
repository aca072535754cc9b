package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mutter0815/mailflow/internal/store"
	"github.com/Mutter0815/mailflow/pkg/config"
	"github.com/Mutter0815/mailflow/pkg/db"
	"github.com/Mutter0815/mailflow/pkg/logx"
	"github.com/Mutter0815/mailflow/pkg/rmq"
	"github.com/Mutter0815/mailflow/services/campaign-api/server"
)

func main() {
	logx.Init()
	defer logx.Sync()

	config.MustLoadAPI()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.API); err != nil {
		logx.L().Errorw("api_exit_error", "error", err)
		return
	}
	logx.L().Infow("api_stopped")
}

func run(ctx context.Context, cfg config.APIConfig) error {
	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logx.L().Warnw("db_close_error", "error", err)
		}
	}()

	st := store.New(sqlDB)
	ctxMig, cancelMig := context.WithTimeout(ctx, 10*time.Second)
	err = st.Migrate(ctxMig)
	cancelMig()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pub, err := rmq.NewPublisher(cfg.RMQURL, cfg.Queue)
	if err != nil {
		return fmt.Errorf("rmq publisher: %w", err)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logx.L().Warnw("rmq_publisher_close_error", "error", err)
		}
	}()

	srv := server.NewHTTPServer(":"+cfg.Port, server.NewHandlers(st, pub))
	srv.ReadHeaderTimeout = 5 * time.Second

	errc := make(chan error, 1)
	go func() {
		logx.L().Infow("api_listen_start", "addr", srv.Addr, "queue", cfg.Queue)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logx.L().Infow("signal_received")
	}

	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShut); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
