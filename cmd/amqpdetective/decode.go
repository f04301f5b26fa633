package main

import (
	"fmt"

	"github.com/danmuck/amqpdetective/internal/capture"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/render"
	"github.com/spf13/cobra"
)

func newDecodeCmd(opts *rootOptions) *cobra.Command {
	var (
		side   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "decode DUMP",
		Short: "Decode one capture without matching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			src, err := frame.ParseSource(side)
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Analysis.Format
			}
			fmtOut, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			stream, err := capture.LoadFile(src, args[0], cfg.Analysis.MaxCaptureBytes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if fmtOut == render.FormatJSON {
				entries := make([]render.Entry, len(stream.Messages))
				for i, m := range stream.Messages {
					entries[i] = render.NewEntry(m)
				}
				body := struct {
					Messages []render.Entry `json:"messages"`
					Error    string         `json:"error,omitempty"`
				}{Messages: entries}
				if stream.Err != nil {
					body.Error = stream.Err.Error()
				}
				if err := render.WriteJSON(out, body); err != nil {
					return err
				}
			} else {
				if err := render.WriteText(out, stream.Messages); err != nil {
					return err
				}
				if stream.Err != nil {
					fmt.Fprintf(out, "# %v\n", stream.Err)
				}
			}
			return stream.Err
		},
	}
	cmd.Flags().StringVar(&side, "side", "client", "Which side the capture came from: client or server")
	cmd.Flags().StringVar(&format, "format", "", "Output format: text or json (default from config)")
	return cmd
}
