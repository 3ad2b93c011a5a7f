package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pairlink/internal/domain"
)

// send <topic> <message>: publish a message on an active relationship.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <topic> <message>",
		Short: "Send a message on an active relationship",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := domain.Topic(args[0])
			if err := wire.Engine.Send(cmd.Context(), topic, jsonPayload(args[1])); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}
