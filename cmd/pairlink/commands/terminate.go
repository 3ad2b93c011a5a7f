package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pairlink/internal/domain"
)

func terminateCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "terminate <topic>",
		Short: "End a relationship and discard its keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := domain.Topic(args[0])
			if err := wire.Engine.Terminate(cmd.Context(), topic, reason); err != nil {
				return err
			}
			fmt.Println("terminated")
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "user terminated", "reason sent to the peer")
	return cmd
}
