package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ngmaloney/tide-terminal/internal/geocoding"
	"github.com/ngmaloney/tide-terminal/internal/logging"
	"github.com/ngmaloney/tide-terminal/internal/predictor"
	"github.com/ngmaloney/tide-terminal/internal/server"
	"github.com/ngmaloney/tide-terminal/internal/uhslc"
	"github.com/ngmaloney/tide-terminal/internal/ui"
)

func serveCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stations and predictions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			srv := server.New(a.svc, server.Options{
				Addr:     addr,
				CacheTTL: a.cfg.HTTPCacheTTL,
				Registry: reg,
				Logger:   a.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $TIDE_HTTP_ADDR)")
	return cmd
}

func tuiCommand(a *app) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse stations and tides interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Log lines would tear the alternate screen.
			quiet := logging.Discard()
			ftp := uhslc.NewFTPClient(a.cfg.FTPHost, a.cfg.FTPTimeout, a.cfg.FTPRetries, quiet)
			geo := geocoding.NewGeocoder(geocoding.WithBaseURL(a.cfg.GeocoderURL))
			svc := predictor.New(a.cfg, a.db, ftp, predictor.WithLogger(quiet), predictor.WithGeocoder(geo))

			p := tea.NewProgram(ui.NewModel(svc, ui.WithInitialQuery(location)), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "Station name or code to open directly")
	return cmd
}
