package main

import (
	"fmt"

	"github.com/danmuck/amqpdetective/internal/grammar"
	"github.com/spf13/cobra"
)

func newGrammarCmd(opts *rootOptions) *cobra.Command {
	var asTOML bool
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Print the active grammar",
		Long: `grammar prints the grammar analyze would use. With --toml the output is a
grammar file that --grammar accepts, which is a starting point for custom
grammars.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			g, err := opts.loadGrammar(cfg)
			if err != nil {
				return err
			}
			if asTOML {
				return grammar.WriteTOML(cmd.OutOrStdout(), g)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), g.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "Print as a TOML grammar file")
	return cmd
}
