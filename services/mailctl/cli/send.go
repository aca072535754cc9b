package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mutter0815/mailflow/internal/campaign"
	"github.com/Mutter0815/mailflow/pkg/logx"
)

type sendOptions struct {
	name     string
	template string
	contacts []string
	segments []string
	at       string
	cron     string
	dryRun   bool
}

func newSendCmd(newClient ClientFactory) *cobra.Command {
	var o sendOptions

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a campaign now or on a schedule",
		Example: `  mailctl send --name "October digest" \
    --template 0b8a6c1e-3f7d-4c55-9a43-2f1b7f0d9e10 \
    --contact 6f1c2d3e-4a5b-4c6d-8e7f-9a0b1c2d3e4f \
    --at 2030-01-06T09:00:00Z --cron "0 9 * * 1"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := o.build()
			if err != nil {
				return err
			}

			if o.dryRun {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(req)
			}

			api, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := api.SendCampaign(cmd.Context(), req); err != nil {
				return err
			}
			logx.L().Infow("campaign_submitted", "name", req.CampaignName, "recipients", req.SendTo.Total())
			fmt.Fprintf(cmd.OutOrStdout(), "campaign %q submitted to %d recipient reference(s)\n", req.CampaignName, req.SendTo.Total())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.name, "name", "", "campaign name")
	f.StringVar(&o.template, "template", "", "template id (uuid)")
	f.StringSliceVar(&o.contacts, "contact", nil, "contact id, repeatable")
	f.StringSliceVar(&o.segments, "segment", nil, "segment id, repeatable")
	f.StringVar(&o.at, "at", "", "send time, ISO-8601 UTC (2030-01-06T09:00:00Z)")
	f.StringVar(&o.cron, "cron", "", "cron expression for recurring sends, requires --at")
	f.BoolVar(&o.dryRun, "dry-run", false, "print the request instead of sending it")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func (o sendOptions) build() (campaign.SendRequest, error) {
	if o.cron != "" && o.at == "" {
		return campaign.SendRequest{}, fmt.Errorf("--cron needs --at for the first run")
	}

	b, err := campaign.NewSendRequestBuilder(o.name, o.template)
	if err != nil {
		return campaign.SendRequest{}, err
	}
	b.AddContacts(o.contacts...).AddSegments(o.segments...)
	if o.at != "" {
		b.WithSchedule(o.at, o.cron)
	}
	return b.Build()
}
