package cmd

import (
	"log/slog"
	"os"

	"github.com/shaharia-lab/mailjob/internal/config"
	"github.com/shaharia-lab/mailjob/internal/notification"
	"github.com/shaharia-lab/mailjob/internal/template"
)

// newTransport builds the transport selected by MAILJOB_TRANSPORT.
func newTransport(cfg *config.AppConfig, logger *slog.Logger) notification.Transport {
	if cfg.Transport == config.TransportLog {
		return notification.NewLogTransport(logger)
	}
	return notification.NewSMTPTransport(cfg.SMTP())
}

func newTemplateStore(cfg *config.AppConfig) *template.FSStore {
	return template.NewFSStore(os.DirFS(cfg.TemplatesDir))
}
