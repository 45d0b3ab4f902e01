package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/etnz/pnl/config"
	"github.com/etnz/pnl/scheduler"
	"github.com/etnz/pnl/server"
)

// serveCmd runs computation cycles periodically and serves the live view.
type serveCmd struct {
	cfg *config.Config
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "compute the PnL periodically and serve it over HTTP" }
func (*serveCmd) Usage() string {
	return `wpnl serve [-addr <addr>] [-interval <duration>]

  Computes a new report every interval and publishes it:

    GET  /api/v1/report               latest report
    GET  /api/v1/positions[/{token}]  positions
    GET  /api/v1/windows/daily?date=  realized PnL of a day
    GET  /api/v1/windows/weekly?date= realized PnL of a week
    GET  /api/v1/stats                statistics over the positions
    POST /api/v1/cycle                compute a new report now
    GET  /api/v1/ws                   WebSocket pushing every new report
    GET  /metrics                     Prometheus metrics

  A cycle is skipped when the previous one is still running.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	c.cfg.RegisterFlags(f)
	f.StringVar(&c.cfg.Addr, "addr", c.cfg.Addr, "listen address")
	f.DurationVar(&c.cfg.Interval, "interval", c.cfg.Interval, "time between computation cycles")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, c.cfg, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer p.Close()

	var live *server.Server
	sched := &scheduler.Scheduler{
		Interval: c.cfg.Interval,
		Cycle: func(ctx context.Context) error {
			report, err := p.compute(ctx)
			if err != nil {
				return err
			}
			live.Publish(report)
			log.Printf("cycle %s: %d positions, realized %s, unrealized %s",
				scheduler.CycleID(ctx), len(report.Positions), report.Totals.Realized, report.Totals.Unrealized)
			return nil
		},
	}
	live = server.New(server.WithTrigger(sched.Trigger))
	defer live.Close()

	srv := &http.Server{
		Addr:         c.cfg.Addr,
		Handler:      live.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  time.Minute,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("wpnl listening on %s", c.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go sched.Run(ctx)

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fail("server: %v", err)
	}

	log.Println("shutting down")
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fail("shutdown: %v", err)
	}
	return subcommands.ExitSuccess
}
