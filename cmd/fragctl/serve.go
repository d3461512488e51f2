package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"protoserial/pkg/config"
	"protoserial/pkg/fragmentation"
	"protoserial/internal/logger"
	"protoserial/internal/queue"
	"protoserial/pkg/metrics"
	"protoserial/pkg/xfer"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a long-lived fragmentation endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a fragctl YAML config")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewLogrusLogger(logLevelFromString(cfg.LogLevel))

	reg := prometheus.NewRegistry()
	var recorder metrics.Recorder = metrics.NewPrometheus(reg, "fragctl")

	if cfg.Metrics.Enabled {
		r := chi.NewRouter()
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go http.ListenAndServe(cfg.Metrics.Listen, r)
		log.Info("fragctl: metrics listening on %s%s", cfg.Metrics.Listen, cfg.Metrics.Path)
	}

	iface, err := buildTransport(cfg.Transport, log)
	if err != nil {
		return err
	}
	defer func() {
		if closer, ok := iface.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	fcfg := fragmentation.Config{
		Interface:            iface.Identifier(),
		MaxFragmentSize:      cfg.Fragment.MaxFragmentSize,
		RetransmitTime:       cfg.Fragment.RetransmitTime,
		DropTime:             cfg.Fragment.DropTime,
		RetransmitMultiplier: cfg.Fragment.RetransmitMultiplier,
		TombstoneMultiplier:  cfg.Fragment.TombstoneMultiplier,
	}
	handler := fragmentation.NewHandler(fcfg, fragmentation.WithMetrics(recorder), fragmentation.WithLogger(log))
	handler.BindTo(iface)

	handler.TransferReceiveEvent.Subscribe(func(t *xfer.Transfer) {
		log.Info("fragctl: transfer %d from %d complete, %d bytes", t.ID(), t.Source(), t.DataSize())
	})
	handler.TransferAckEvent.Subscribe(func(m xfer.Metadata) {
		log.Info("fragctl: transfer %d to %d acked", m.ID, m.Destination)
	})

	log.Info("fragctl: serving on transport kind=%s", cfg.Transport.Kind)
	runEventLoop(iface, handler)
	return nil
}

// runEventLoop is the single serialized goroutine fragmentation.Handler
// requires: it is the only caller of ReceiveCallback and MainTask, so
// Handler is never reentered no matter how many goroutines the transport
// itself runs internally to move bytes.
//
// MainTask's cadence is driven off a queue.PriorityQueue instead of a bare
// time.Ticker: a single Handler only ever has one job in flight, but the
// queue is how a future multi-interface fragctl would stagger several
// handlers' MainTask calls by due time without spinning up one ticker
// goroutine per handler.
func runEventLoop(iface fragmentSource, handler *fragmentation.Handler) {
	const period = 500 * time.Millisecond
	jobs := queue.NewPriorityQueue()
	jobs.Push(handler, 0, time.Now().Add(period))

	for {
		due := jobs.Peek().NextRun
		timer := time.NewTimer(time.Until(due))
		select {
		case f := <-iface.Fragments():
			timer.Stop()
			iface.ReceiveEvent().Emit(f)
		case <-timer.C:
			if job := jobs.NextReady(time.Now()); job != nil {
				job.(*fragmentation.Handler).MainTask()
				jobs.Push(handler, 0, time.Now().Add(period))
			}
		}
	}
}

func logLevelFromString(s string) logger.Level {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}
