package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pairlink/internal/app"
)

var (
	configPath string
	home       string
	relayURL   string
	authToken  string
	passphrase string
	protocol   string
	debug      bool

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "pairlink",
		Short: "Encrypted pairing and messaging over a pub/sub relay",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if home != "" {
				cfg.Home = home
			}
			if cfg.Home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				cfg.Home = filepath.Join(dir, ".pairlink")
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			if relayURL != "" {
				cfg.RelayURL = relayURL
			}
			if authToken != "" {
				cfg.AuthToken = authToken
			}
			if passphrase != "" {
				cfg.Passphrase = passphrase
			}
			if protocol != "" {
				cfg.Protocol = protocol
			}
			if debug {
				cfg.Development = true
			}

			wire, err = app.NewWire(*cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./pairlink.yaml)")
	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.pairlink)")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay websocket URL (e.g. wss://relay.example.org)")
	root.PersistentFlags().StringVar(&authToken, "token", "", "relay auth token")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&protocol, "protocol", "", "protocol: pairing, push, or auth (default pairing)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "verbose console logging")

	root.AddCommand(
		registerCmd(),
		proposeCmd(),
		respondCmd(),
		sendCmd(),
		terminateCmd(),
		listCmd(),
		listenCmd(),
	)
	return root.Execute()
}
