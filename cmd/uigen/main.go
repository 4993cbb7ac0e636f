// Command uigen serves the component generator: auth, projects and the
// generation agent behind one HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jivzik/uigen/internal/prompts"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

type rootFlags struct {
	configPath string
	logLevel   string
	debug      bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "uigen",
		Short:         "AI-assisted React component generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: uigen.yaml found upward from cwd)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "mirror logs to stderr")

	cmd.AddCommand(serveCmd(flags), keyCmd(flags), promptCmd(), versionCmd())
	return cmd
}

func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the generation system prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), prompts.Generation)
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uigen %s (built %s)\n", Version, BuildTime)
		},
	}
}
