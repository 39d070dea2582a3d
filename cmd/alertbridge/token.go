package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/alertbridge/pkg/config"
	"github.com/rhuss/alertbridge/pkg/observability"
	"github.com/rhuss/alertbridge/pkg/token"
)

func tokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint tokens with the configured secret",
		Long: `Mint tokens with the configured secret and print them to stdout.

Examples:
  alertbridge token device --email sensor-7@example.com
  alertbridge token user --email alice@example.com
  alertbridge token backend`,
	}

	cmd.AddCommand(
		userTokenCmd(configPath, "device", "Mint a non-expiring user token for an IoT device", false),
		userTokenCmd(configPath, "user", "Mint an expiring user token", true),
		backendTokenCmd(configPath),
	)
	return cmd
}

func userTokenCmd(configPath *string, use, short string, expires bool) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := loadCodec(*configPath)
			if err != nil {
				return err
			}
			tok, err := codec.MintUser(email, expires)
			if err != nil {
				return err
			}
			observability.TokensMintedTotal.WithLabelValues(use).Inc()
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email of the user the token is issued to")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func backendTokenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Mint a backend (superuser) token",
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := loadCodec(*configPath)
			if err != nil {
				return err
			}
			tok, err := codec.MintBackend()
			if err != nil {
				return err
			}
			observability.TokensMintedTotal.WithLabelValues("backend").Inc()
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

// loadCodec builds the codec from the full configuration, so that the CLI
// signs exactly like the running server.
func loadCodec(configPath string) (*token.Codec, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newCodec(cfg)
}

func newCodec(cfg *config.Config) (*token.Codec, error) {
	codec, err := token.New(token.Config{
		Secret:       []byte(cfg.Token.Secret),
		Algorithm:    cfg.Token.Algorithm,
		UserLifetime: cfg.Token.UserLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}
	return codec, nil
}
