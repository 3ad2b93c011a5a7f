package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := wire.Engine.ListActive()
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("no active relationships")
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%s  %s  peer=%s  since=%s\n",
					rec.Topic, rec.Protocol, rec.PeerPublicKey.Hex(),
					rec.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
