package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Publish your invite key and listen for proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := wire.Engine.RegisterIdentity(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("invite key: %s\n", pub.Hex())
			fmt.Println("share it with peers; run 'pairlink listen' to receive proposals")
			return nil
		},
	}
}
