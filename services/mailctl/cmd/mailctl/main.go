package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/pkg/logx"
	"github.com/Mutter0815/mailflow/services/mailctl/cli"
)

func main() {
	opts := logx.OptionsFromEnv()
	if opts.Level == "" {
		opts.Level = "warn"
	}
	if opts.Format == "" {
		opts.Format = "console"
	}
	logx.InitWith(opts)
	defer logx.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(cli.DefaultClient).ExecuteContext(ctx); err != nil {
		var verr *campaign.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				fmt.Fprintf(os.Stderr, "%s: %s\n", v.Path, v.Message)
			}
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}
