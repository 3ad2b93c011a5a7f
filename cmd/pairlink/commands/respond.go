package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pairlink/internal/domain"
)

func respondCmd() *cobra.Command {
	var reject bool
	var reason string

	cmd := &cobra.Command{
		Use:   "respond <request-id>",
		Short: "Accept or reject a pending proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid request id %q: %w", args[0], err)
			}

			if err := wire.Engine.Respond(cmd.Context(), domain.RequestID(id), !reject, reason); err != nil {
				return err
			}
			if reject {
				fmt.Println("proposal rejected")
			} else {
				fmt.Println("proposal accepted")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "decline the proposal")
	cmd.Flags().StringVar(&reason, "reason", "", "reason sent with a rejection")
	return cmd
}
