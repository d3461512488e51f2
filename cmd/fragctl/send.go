package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"protoserial/pkg/config"
	"protoserial/pkg/fragmentation"
	"protoserial/internal/logger"
	"protoserial/pkg/link"
	"protoserial/pkg/metrics"
	"protoserial/pkg/xfer"
)

func newSendCmd() *cobra.Command {
	var configPath, file string
	var dest uint16
	var id uint16
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Transmit one payload to a peer and wait for its ACK",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(configPath, file, link.Address(dest), id)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a fragctl YAML config")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the payload to send")
	cmd.Flags().Uint16VarP(&dest, "dest", "d", 0, "destination link.Address")
	cmd.Flags().Uint16Var(&id, "id", 1, "transfer id")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runSend(configPath, file string, dest link.Address, id uint16) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("fragctl send: read %s: %w", file, err)
	}

	log := logger.NewLogrusLogger(logLevelFromString(cfg.LogLevel))
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
	handler := fragmentation.NewHandler(fcfg, fragmentation.WithMetrics(metrics.NoOp()), fragmentation.WithLogger(log))
	handler.BindTo(iface)

	acked := make(chan struct{})
	handler.TransferAckEvent.Subscribe(func(m xfer.Metadata) {
		if m.ID == id {
			close(acked)
		}
	})

	t := xfer.NewTransmissionTransfer(0, dest, id, 0, payload, handler.MaxFragmentSize())
	handler.Transmit(t)

	go runEventLoop(iface, handler)

	select {
	case <-acked:
		log.Info("fragctl: transfer %d acked", id)
		return nil
	case <-time.After(cfg.Fragment.DropTime):
		return fmt.Errorf("fragctl send: transfer %d timed out waiting for ack", id)
	}
}
