package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mailjob/internal/config"
)

// rootCmdFor builds the command tree around cfg.
func rootCmdFor(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:   "mailjob",
		Short: "Transactional mail dispatcher",
		Long: `mailjob consumes events from a broker topic, renders the email template
registered for each event type and delivers it through SMTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		NewRunCmd(cfg),
		NewSendCmd(cfg),
		NewTemplatesCmd(cfg),
		NewVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmdFor(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
