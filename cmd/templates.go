package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mailjob/internal/config"
)

// NewTemplatesCmd returns the "templates" subcommand listing the templates
// found in the templates directory.
func NewTemplatesCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List and validate the configured email templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := newTemplateStore(cfg)
			keys, err := store.Keys()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(w, dimStyle.Render("no templates in "+cfg.TemplatesDir))
				return nil
			}

			var invalid int
			for _, key := range keys {
				c, err := store.Load(cmd.Context(), key)
				if err != nil {
					invalid++
					fmt.Fprintf(w, "%s %s\n", failStyle.Render("✗ "+key), dimStyle.Render(err.Error()))
					continue
				}
				fmt.Fprintf(w, "%s %s\n", okStyle.Render("✓ "+key), valueStyle.Render(c.Subject))
			}
			if invalid > 0 {
				return errors.Newf("%d of %d templates are invalid", invalid, len(keys))
			}
			return nil
		},
	}
}
