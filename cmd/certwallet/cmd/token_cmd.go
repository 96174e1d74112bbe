package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "certwallet/internal/jwt_token"
)

const defaultTokenTTL = 15 * time.Minute

type tokenFlags struct {
	subject string
	ttl     time.Duration
}

func newTokenCommand(root *rootFlags) *cobra.Command {
	flags := &tokenFlags{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "issues an admin bearer token signed with the configured key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load(cmd)
			if err != nil {
				return err
			}
			token, err := jwttoken.NewAdminTokens(cfg.Admin.JWTSigningKey, cfg.Admin.JWTIssuer).Issue(flags.subject, flags.ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.subject, "subject", "", "operator the token is issued to")
	cmd.Flags().DurationVar(&flags.ttl, "ttl", defaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
