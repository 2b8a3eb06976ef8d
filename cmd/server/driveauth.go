package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
)

func newDriveAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drive-auth",
		Short: "Authorize Google Drive archiving and save the OAuth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			d := cfg.Archive.GoogleDrive

			oauthCfg, err := storage.DriveOAuthConfig(d.CredentialsFile)
			if err != nil {
				return err
			}
			if err := storage.AuthorizeDrive(cmd.Context(), oauthCfg, d.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", d.TokenFile)
			return nil
		},
	}
}
