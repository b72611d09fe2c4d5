package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mailjob/internal/config"
	"github.com/shaharia-lab/mailjob/internal/dispatch"
	"github.com/shaharia-lab/mailjob/internal/eventbus"
	"github.com/shaharia-lab/mailjob/internal/mailjob"
	"github.com/shaharia-lab/mailjob/internal/template"
)

// NewSendCmd returns the "send" subcommand that runs one dispatch without
// the broker.
func NewSendCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		payload string
		dryRun  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "send <event-type>",
		Short: "Dispatch a single event directly",
		Long: `Resolve, render and deliver the template for one event type, bypassing
the broker. With --dry-run the rendered message is printed instead of sent.
Exits non-zero and prints the failure kind when the dispatch fails.`,
		Example: `  mailjob send user.register --payload '{"email":"ada@example.com","name":"Ada"}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logOut := io.Discard
			if verbose {
				logOut = cmd.ErrOrStderr()
			}
			log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

			evt, err := mailjob.Decode(eventbus.Message{Type: args[0], Body: []byte(payload)})
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render(string(dispatch.KindMalformedMessage)), err)
				return errors.Wrap(err, "invalid payload")
			}

			if dryRun {
				return renderOnly(ctx, cmd.OutOrStdout(), newTemplateStore(cfg), evt)
			}

			executor := dispatch.NewExecutor(dispatch.Config{
				Resolver:       template.NewResolver(newTemplateStore(cfg)),
				Transport:      newTransport(cfg, log),
				Logger:         log,
				RecipientField: cfg.RecipientField,
			})
			return printOutcome(cmd.OutOrStdout(), executor.Dispatch(ctx, evt.Type, evt.Payload))
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "{}", "Event payload as a JSON object")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the message and print it without sending")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Write logs to stderr")

	return cmd
}

func renderOnly(ctx context.Context, w io.Writer, store template.Store, evt mailjob.Event) error {
	content, err := template.NewResolver(store).Resolve(ctx, evt.Type)
	if err != nil {
		kind := dispatch.KindUnknown
		switch {
		case errors.Is(err, template.ErrTemplateNotFound):
			kind = dispatch.KindTemplateNotFound
		case errors.Is(err, template.ErrMalformedTemplate):
			kind = dispatch.KindRender
		}
		fmt.Fprintln(w, failStyle.Render(string(kind)), err)
		return err
	}
	out, err := template.Renderer{}.Render(content, evt.Payload)
	if err != nil {
		fmt.Fprintln(w, failStyle.Render(string(dispatch.KindRender)), err)
		return err
	}

	fmt.Fprintln(w, renderRows(titleStyle.Render(evt.Type), [][2]string{{"subject", out.Subject}}))
	if out.Text != "" {
		fmt.Fprintln(w, dimStyle.Render("--- text ---"))
		fmt.Fprintln(w, out.Text)
	}
	if out.HTML != "" {
		fmt.Fprintln(w, dimStyle.Render("--- html ---"))
		fmt.Fprintln(w, out.HTML)
	}
	return nil
}

func printOutcome(w io.Writer, out dispatch.Outcome) error {
	rows := [][2]string{
		{"dispatch", out.DispatchID},
		{"recipient", out.Recipient},
		{"transport", out.Transport},
		{"duration", out.Duration.String()},
	}
	if out.Success() {
		fmt.Fprintln(w, renderRows(okStyle.Render("sent"), rows))
		return nil
	}
	rows = append(rows, [2]string{"error", out.Err.Err.Error()})
	fmt.Fprintln(w, renderRows(failStyle.Render(string(out.Kind())), rows))
	return errors.Newf("dispatch failed: %s", out.Kind())
}
