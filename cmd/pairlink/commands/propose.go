package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pairlink/internal/domain"
)

// jsonPayload wraps free text as a JSON string; already-valid JSON
// passes through untouched.
func jsonPayload(s string) []byte {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return []byte(s)
	}
	raw, _ := json.Marshal(s)
	return raw
}

func proposeCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "propose <invite-key> [payload]",
		Short: "Propose a relationship to a peer's invite key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParsePublicKey(args[0])
			if err != nil {
				return err
			}
			var payload []byte
			if len(args) == 2 {
				payload = jsonPayload(args[1])
			}

			id, err := wire.Engine.Propose(cmd.Context(), peer, domain.AccountID(account), payload)
			if err != nil {
				return err
			}
			fmt.Printf("proposal sent, request id %d\n", id)
			fmt.Println("run 'pairlink listen' to await the peer's decision")
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account identifier to present to the peer")
	return cmd
}
