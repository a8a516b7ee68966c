package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/chunksend/config"
	"github.com/opd-ai/chunksend/transfer"
	"github.com/opd-ai/chunksend/transport"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Wait for one peer and send it the configured file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrInit(opts.configFile(config.DefaultServerFile), config.DefaultServer)
			if err != nil {
				return err
			}

			ln, err := transport.Listen(cfg.Address.String())
			if err != nil {
				return err
			}
			defer ln.Close()

			_, err = serveOnce(cmd.Context(), ln, cfg, opts.progressWriter(cmd))
			return err
		},
	}
}

// serveOnce accepts a single connection on ln and sends cfg.FilePath over it.
// The listener is closed once the peer is accepted.
func serveOnce(ctx context.Context, ln *transport.Listener, cfg *config.ServerConfig, progressOut io.Writer) (*transfer.Result, error) {
	sender, err := transfer.NewSender(cfg.Protocol, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "serveOnce",
		"address":    ln.Addr().String(),
		"file_path":  cfg.FilePath,
		"protocol":   cfg.Protocol.String(),
		"chunk_size": cfg.ChunkSize,
	}).Info("Waiting for peer")

	conn, err := ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	ln.Close()
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	tracker := newTracker(progressOut)
	if tracker != nil {
		sender.OnProgress(tracker.Observe)
	}

	res, err := sender.SendFile(conn, cfg.FilePath)
	if tracker != nil && err == nil {
		tracker.Finish()
	}
	if err != nil {
		return nil, interrupted(ctx, err)
	}

	logSummary("serveOnce", conn.RemoteAddr().String(), res)
	return res, nil
}

// interrupted annotates err when the session ended because ctx was cancelled.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return err
}

func logSummary(function, peer string, res *transfer.Result) {
	logrus.WithFields(logrus.Fields{
		"function":   function,
		"peer":       peer,
		"session_id": res.SessionID,
		"protocol":   res.Protocol.String(),
		"bytes":      res.Bytes,
		"chunks":     res.Chunks,
		"elapsed":    res.Elapsed,
		"digest":     res.DigestHex(),
	}).Info("Transfer complete")
}
