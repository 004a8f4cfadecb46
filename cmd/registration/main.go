// Package main writes a Matrix appservice registration file for the bridge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l5yth/potato-mesh/internal/bridge"
	"github.com/l5yth/potato-mesh/internal/crypto"
	"github.com/l5yth/potato-mesh/internal/matrix"
)

const tokenBytes = 32

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		id         string
		url        string
		serverName string
		sender     string
		output     string
	)

	cmd := &cobra.Command{
		Use:          "registration",
		Short:        "Generate an appservice registration.yaml with fresh tokens",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			asToken, err := crypto.GenerateToken(tokenBytes)
			if err != nil {
				return err
			}
			hsToken, err := crypto.GenerateToken(tokenBytes)
			if err != nil {
				return err
			}

			reg := matrix.NewRegistration(id, url, asToken, hsToken, sender, bridge.PuppetPrefix, serverName)
			data, err := reg.Encode()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			fmt.Fprintln(cmd.ErrOrStderr(), "Set MATRIX_AS_TOKEN and MATRIX_HS_TOKEN from the file before starting the bridge.")
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&id, "id", "potatomesh-bridge", "Appservice id")
	fs.StringVar(&url, "url", "http://localhost:41448", "URL the homeserver uses to reach the bridge listener")
	fs.StringVar(&serverName, "server-name", "", "Matrix server name the puppets live on")
	fs.StringVar(&sender, "sender-localpart", "potatomesh", "Localpart of the appservice bot user")
	fs.StringVarP(&output, "output", "o", "registration.yaml", "Output path, - for stdout")
	_ = cmd.MarkFlagRequired("server-name")

	return cmd
}
