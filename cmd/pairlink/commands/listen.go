package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pairlink/internal/domain"
)

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print engine events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-wire.Engine.Events():
					if !ok {
						return nil
					}
					printEvent(ev)
				}
			}
		},
	}
}

func printEvent(ev domain.Event) {
	switch e := ev.(type) {
	case domain.ConnectionStateEvent:
		if e.Connected {
			fmt.Println("relay connected")
		} else {
			fmt.Println("relay disconnected")
		}
	case domain.ProposalEvent:
		fmt.Printf("proposal %d from %s", e.RequestID, e.PeerPublicKey.Hex())
		if e.Account != "" {
			fmt.Printf(" account=%s", e.Account)
		}
		if len(e.Payload) > 0 {
			fmt.Printf(" payload=%s", e.Payload)
		}
		fmt.Printf("\n  respond with: pairlink respond %d [--reject]\n", e.RequestID)
	case domain.AcceptanceEvent:
		fmt.Printf("proposal %d accepted, channel topic %s\n", e.RequestID, e.Topic)
	case domain.RejectionEvent:
		fmt.Printf("proposal %d rejected: %s\n", e.RequestID, e.Reason)
	case domain.MessageEvent:
		fmt.Printf("[%s] %s\n", e.Topic, e.Payload)
	case domain.DeletionEvent:
		fmt.Printf("relationship %s ended: %s\n", e.Topic, e.Reason)
	case domain.ErrorEvent:
		fmt.Printf("error: %v\n", e.Err)
	}
}
