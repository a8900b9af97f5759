package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gnomegl/wagroups/internal/config"
	"github.com/gnomegl/wagroups/internal/export"
	"github.com/gnomegl/wagroups/internal/filter"
	"github.com/gnomegl/wagroups/internal/mutate"
	"github.com/gnomegl/wagroups/internal/pacing"
	"github.com/gnomegl/wagroups/internal/pipeline"
	"github.com/gnomegl/wagroups/internal/whatsapp"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// connect opens the stored session, pairing through a terminal QR code when
// none exists, and blocks until the session is ready.
func connect(ctx context.Context, cfg *config.Config, out io.Writer) (*whatsapp.Client, error) {
	client, err := whatsapp.New(ctx, cfg.SessionDB, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing client: %w", err)
	}

	qrCtx, stopQR := context.WithCancel(ctx)
	defer stopQR()
	if !client.Paired() {
		go showQRCodes(qrCtx, client, out)
	}

	fmt.Fprintln(out, "Connecting to WhatsApp...")
	if err := client.Connect(ctx); err != nil {
		closeClient(client)
		return nil, err
	}

	if err := client.Session().WaitReady(ctx); err != nil {
		closeClient(client)
		return nil, err
	}

	fmt.Fprintf(out, "✓ Client is ready (%s)\n\n", client.SelfID())
	return client, nil
}

func showQRCodes(ctx context.Context, client *whatsapp.Client, out io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case code := <-client.Session().QRCodes():
			fmt.Fprintln(out, "\nScan this QR code with WhatsApp (Linked devices):")
			if err := whatsapp.RenderQR(out, code); err != nil {
				logger.Warn("failed to render QR code", zap.Error(err))
				fmt.Fprintf(out, "QR code: %s\n", code)
			}
		}
	}
}

func newRunner(cfg *config.Config, client pipeline.Messenger, out io.Writer) (*pipeline.Runner, error) {
	f, err := filter.New(cfg.Keywords, cfg.BoundaryKeywords)
	if err != nil {
		return nil, err
	}

	return &pipeline.Runner{
		Client:      client,
		Config:      cfg,
		Filter:      f,
		Reporter:    export.NewReporter(cfg.OutputDir, out),
		Pacer:       pacing.New(cfg.Delays, cfg.RateLimit, pacing.RealClock()),
		Out:         out,
		Log:         logger,
		NewProgress: newProgress,
	}, nil
}

// newProgress draws a bar on stderr when it is a terminal.
func newProgress(max int) mutate.Progress {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Pairings"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func closeClient(client *whatsapp.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("error closing client", zap.Error(err))
	}
}
