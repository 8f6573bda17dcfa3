package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/strategy-canvas/pkg/auth"
)

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var (
		user    string
		name    string
		role    string
		ttl     time.Duration
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with auth.secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errors.New("auth.secret is not configured (set CANVAS_AUTH_SECRET)")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			if name == "" {
				name = user
			}

			m, err := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, ttl)
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(user, name, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)

			if verbose {
				claims, err := m.ValidateToken(cmd.Context(), token)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s as %s, expires %s\n",
					good.Sprint("✓"), claims.Username, brand.Sprint(claims.Role),
					subtle.Sprint(claims.ExpiresAt.Format(time.RFC3339)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id (required)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the user id)")
	cmd.Flags().StringVarP(&role, "role", "r", auth.RoleEditor, "admin, editor or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the decoded claims to stderr")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
