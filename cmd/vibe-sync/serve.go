package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/metrics"
	"github.com/inodb/vibe-sync/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a synchronized project over HTTP",
		Example: `  vibe-sync serve -p project.yaml --addr :8080
  curl 'localhost:8080/genomes/Mother/chromosomes/1/intervals?start=0&stop=10000&ppb=0.1'`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = s.Server.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m, err := metrics.New(reg)
			if err != nil {
				return err
			}
			mg := a.newContext(s, m)
			if err := a.load(cmd.Context(), cmd, s, mg); err != nil {
				return err
			}

			if !a.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &http.Server{
				Addr: addr,
				Handler: server.NewRouter(mg, server.Options{
					Gatherer:      reg,
					Logger:        a.logger,
					PixelsPerBase: s.Viewport.DefaultPPB,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", addr)

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			a.logger.Info("shutting down", zap.String("addr", addr))
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address (default: server.addr)")
	return cmd
}
