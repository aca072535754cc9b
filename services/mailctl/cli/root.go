// Package cli holds the mailctl command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/pkg/apiclient"
	"github.com/Mutter0815/mailflow/pkg/config"
	"github.com/Mutter0815/mailflow/pkg/model"
)

// API is the part of the mailflow client the commands use.
type API interface {
	SendCampaign(ctx context.Context, req campaign.SendRequest) error
	ListContacts(ctx context.Context, filter string, page, size int) (model.Page[model.Contact], error)
	ListTemplates(ctx context.Context, filter string, page, size int) (model.Page[model.Template], error)
}

type ClientFactory func(ctx context.Context) (API, error)

// DefaultClient builds an apiclient.Client from MAILFLOW_API_* variables.
func DefaultClient(ctx context.Context) (API, error) {
	cfg, err := config.LoadClient(ctx)
	if err != nil {
		return nil, err
	}
	return apiclient.NewFromConfig(cfg), nil
}

func NewRootCmd(newClient ClientFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "mailctl",
		Short:         "Submit and inspect mailflow campaigns",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSendCmd(newClient),
		newContactsCmd(newClient),
		newTemplatesCmd(newClient),
	)
	return root
}
