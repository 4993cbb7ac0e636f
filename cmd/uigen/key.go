package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jivzik/uigen/internal/anthropic"
	"github.com/jivzik/uigen/internal/secrets"
)

func keyCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored Anthropic API key",
	}
	var validate bool
	set := &cobra.Command{
		Use:   "set <api-key>",
		Short: "Encrypt and store an Anthropic API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, fileLog, err := setup(flags)
			if err != nil {
				return err
			}
			defer fileLog.Close()
			key := strings.TrimSpace(args[0])
			if validate {
				client := anthropic.NewClient(key, anthropic.WithBaseURL(cfg.Model.Endpoint))
				if err := client.ValidateKey(cmd.Context()); err != nil {
					return fmt.Errorf("validate key: %w", err)
				}
			}
			if err := secrets.NewDataDirStore(cfg.Storage.DataDir).SetAnthropicKey(key); err != nil {
				return err
			}
			fileLog.Logger.Info("uigen.provider_key_stored", "provider_id", "anthropic")
			fmt.Fprintln(cmd.OutOrStdout(), "Anthropic API key stored")
			return nil
		},
	}
	set.Flags().BoolVar(&validate, "validate", true, "check the key against the API before storing it")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored Anthropic API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, fileLog, err := setup(flags)
			if err != nil {
				return err
			}
			defer fileLog.Close()
			if err := secrets.NewDataDirStore(cfg.Storage.DataDir).ClearProviderKey("anthropic"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Anthropic API key cleared")
			return nil
		},
	}
	cmd.AddCommand(set, clearCmd)
	return cmd
}
