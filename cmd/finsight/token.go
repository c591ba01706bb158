package main

import (
	"fmt"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCommand(a *app) *cobra.Command {
	var userID string
	var email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			v := auth.NewVerifier(a.cfg.Auth.JWTSecret, a.cfg.Auth.Audience)
			token, err := v.Issue(userID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (UUID, required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
