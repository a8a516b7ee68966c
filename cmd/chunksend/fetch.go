package main

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/chunksend/config"
	"github.com/opd-ai/chunksend/transfer"
	"github.com/opd-ai/chunksend/transport"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Connect to a serving peer and save the file it sends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrInit(opts.configFile(config.DefaultClientFile), config.DefaultClient)
			if err != nil {
				return err
			}
			_, err = fetch(cmd.Context(), cfg, opts.progressWriter(cmd))
			return err
		},
	}
}

// fetch dials cfg.Address and receives one file into cfg.SavePath.
func fetch(ctx context.Context, cfg *config.ClientConfig, progressOut io.Writer) (*transfer.Result, error) {
	receiver, err := transfer.NewReceiver(cfg.Protocol)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "fetch",
		"address":   cfg.Address.String(),
		"save_path": cfg.SavePath,
		"protocol":  cfg.Protocol.String(),
	}).Info("Fetching file")

	conn, err := transport.Dial(ctx, cfg.Address.String())
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	tracker := newTracker(progressOut)
	if tracker != nil {
		receiver.OnProgress(tracker.Observe)
	}

	res, err := receiver.ReceiveFile(conn, cfg.SavePath)
	if tracker != nil && err == nil {
		tracker.Finish()
	}
	if err != nil {
		return nil, interrupted(ctx, err)
	}

	logSummary("fetch", conn.RemoteAddr().String(), res)
	return res, nil
}
