// Command amqpdetective reconstructs the order of an AMQP 0-9-1 conversation
// from the two byte streams captured on each side of one connection.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/amqpdetective/internal/config"
	"github.com/danmuck/amqpdetective/internal/grammar"
	"github.com/danmuck/amqpdetective/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath  string
	grammarPath string
	logLevel    string
}

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Error().Err(err).Msg("amqpdetective failed")
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "amqpdetective",
		Short: "Reconstruct AMQP 0-9-1 conversations from captured streams",
		Long: `amqpdetective decodes the client and server byte streams of one AMQP 0-9-1
connection and prints the single message order the protocol grammar allows.
Messages that fit no legal order are marked with (!).

To capture the streams, run tcpflow on the broker port and pick the two
files that belong to one client connection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel == "" {
				return nil
			}
			lvl, ok := logging.ParseLevel(opts.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Tool config file (missing default file means built-in defaults)")
	cmd.PersistentFlags().StringVar(&opts.grammarPath, "grammar", "", "TOML grammar file replacing the built-in grammar")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newDecodeCmd(opts),
		newGrammarCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// loadConfig reads --config. The default path may be absent; an explicit
// path must exist.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return config.Load(o.configPath)
	}
	return config.LoadOptional(o.configPath)
}

// loadGrammar prefers --grammar, then the config's grammar_file, then the
// built-in grammar.
func (o *rootOptions) loadGrammar(cfg config.Config) (*grammar.Grammar, error) {
	path := o.grammarPath
	if path == "" {
		path = cfg.Analysis.GrammarFile
	}
	if path == "" {
		return grammar.AMQP091(), nil
	}
	return grammar.LoadFile(path)
}
