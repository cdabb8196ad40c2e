package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
)

func tokenCmd(load configLoader) *cobra.Command {
	var (
		operator string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator session token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			token, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, operator, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator id (token subject)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
