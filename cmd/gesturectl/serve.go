package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/phanxgames/gesture"
	"github.com/phanxgames/gesture/backend/wsbridge"
)

func newServeCommand(c *cli) *cobra.Command {
	var (
		addr  string
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept touch input over WebSocket and stream gestures back",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			eng, err := c.newEngine(
				gesture.WithBackend("websocket"),
				gesture.WithMetrics(gesture.MustNewMetrics(reg)),
			)
			if err != nil {
				return err
			}
			defer eng.Close()

			start := time.Now()
			clock := func() time.Duration { return time.Since(start) }
			bridge := wsbridge.New(eng, wsbridge.Config{Clock: clock, Logger: eng.Logger()})

			p := newPrinter(cmd.OutOrStdout(), false)
			eng.RegisterEventCallback(func(ev *gesture.Event) {
				bridge.Broadcast(ev)
				if !quiet {
					p.event(ev)
				}
			})

			mux := http.NewServeMux()
			mux.Handle("/ws", bridge)
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			eng.Logger().Info("serving", "addr", addr)

			err = loop(cmd.Context(), eng, clock, errc)
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8642", "listen address")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not print events")
	return cmd
}

// loop drives the engine from the main goroutine: it advances engine time
// so timeouts fire without input and dispatches whatever arrived.
func loop(ctx context.Context, eng *gesture.Engine, clock func() time.Duration, errc <-chan error) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case <-t.C:
			_ = eng.Tick(clock())
			drain(eng)
		}
	}
}
