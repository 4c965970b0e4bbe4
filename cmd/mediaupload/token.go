package main

import (
	"fmt"

	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the persisted credentials",
	}
	cmd.AddCommand(newTokenSaveCmd(), newTokenShowCmd())
	return cmd
}

func newTokenSaveCmd() *cobra.Command {
	var creds network.Credentials

	cmd := &cobra.Command{
		Use:   "save path",
		Short: "Persist credentials of an existing login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := creds.Validate(); err != nil {
				return err
			}
			if err := network.SaveCredentialsFile(args[0], creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", creds, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.AccessToken, "access-token", "", "Access token")
	cmd.Flags().StringVar(&creds.RefreshToken, "refresh-token", "", "Refresh token")
	cmd.Flags().StringVar(&creds.SessionID, "sid", "", "Session id")
	cmd.Flags().Int64Var(&creds.MemberID, "mid", 0, "Member id")

	return cmd
}

func newTokenShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show path",
		Short: "Validate and print persisted credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := network.LoadCredentialsFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), creds)
			return nil
		},
	}
}
