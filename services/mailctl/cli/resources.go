package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type listOptions struct {
	filter string
	page   int
	size   int
}

func (o *listOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.filter, "filter", "", "name filter")
	cmd.Flags().IntVar(&o.page, "page", 1, "page number")
	cmd.Flags().IntVar(&o.size, "size", 10, "page size")
}

func newContactsCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "contacts", Short: "Contacts available as recipients"}

	var o listOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			page, err := api.ListContacts(cmd.Context(), o.filter, o.page, o.size)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
			for _, c := range page.Content {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Email)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d total\n", page.Page, page.TotalPages, page.TotalElements)
			return nil
		},
	}
	o.bind(list)
	cmd.AddCommand(list)
	return cmd
}

func newTemplatesCmd(newClient ClientFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "templates", Short: "Message templates"}

	var o listOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			page, err := api.ListTemplates(cmd.Context(), o.filter, o.page, o.size)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tVERSION\tFAVORITE")
			for _, t := range page.Content {
				fav := ""
				if t.IsFavorite {
					fav = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Version, fav)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d total\n", page.Page, page.TotalPages, page.TotalElements)
			return nil
		},
	}
	o.bind(list)
	cmd.AddCommand(list)
	return cmd
}
