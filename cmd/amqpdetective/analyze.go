package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/amqpdetective/internal/capture"
	"github.com/danmuck/amqpdetective/internal/observability"
	"github.com/danmuck/amqpdetective/internal/protocol/frame"
	"github.com/danmuck/amqpdetective/internal/render"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		format string
		rule   string
	)
	cmd := &cobra.Command{
		Use:   "analyze CLIENT SERVER [OUTPUT]",
		Short: "Interleave a client and a server capture and print the result",
		Long: `analyze decodes the client capture (starting with the protocol header) and
the server capture, matches them against the grammar and prints one line per
message. Out of order messages are marked with (!). OUTPUT is the same as -o.

The command exits non-zero when either capture ended in a decode error. The
messages decoded before the error are still analyzed and printed.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			g, err := opts.loadGrammar(cfg)
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
			if rule == "" {
				rule = cfg.Analysis.RootRule
			}

			observability.RegisterMetrics()
			client, err := capture.LoadFile(frame.SourceClient, args[0], cfg.Analysis.MaxCaptureBytes)
			if err != nil {
				return err
			}
			server, err := capture.LoadFile(frame.SourceServer, args[1], cfg.Analysis.MaxCaptureBytes)
			if err != nil {
				return err
			}
			res, err := capture.Analyze(g, rule, client, server)
			if err != nil {
				return err
			}

			if len(args) == 3 && output == "" {
				output = args[2]
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("output create failed (%s): %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := render.Write(w, fmtOut, res, client.Err, server.Err); err != nil {
				return fmt.Errorf("write analysis: %w", err)
			}

			if path := cfg.Analysis.MetricsTextfile; path != "" {
				if err := observability.WriteTextfile(path); err != nil {
					log.Warn().Err(err).Str("path", path).Msg("metrics textfile write failed")
				}
			}
			if err := capture.DecodeErr(client, server); err != nil {
				return fmt.Errorf("capture decode failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the analysis to a file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "Output format: text or json (default from config)")
	cmd.Flags().StringVar(&rule, "rule", "", "Grammar rule to match instead of the root rule")
	return cmd
}
