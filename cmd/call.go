package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/config"
	"github.com/alamayub/omagle-clone/internal/peer"
	"github.com/alamayub/omagle-clone/internal/ui"
	"github.com/alamayub/omagle-clone/internal/version"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagName     string
	flagPings    int
	flagInterval time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Meet a stranger over a WebRTC data channel",
	Long: `Connect to the relay, wait for a stranger and open a WebRTC data channel
with them. Both sides exchange pings and the call ends after --pings round
trips, when the stranger hangs up, or on Ctrl-C.

Examples:
  omagle call
  omagle call --server wss://chat.example.com/ws --pings 10
  omagle call --turn turn.example.com --turn-user me --turn-pass secret --relay`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadClientConfig()
		if err != nil {
			return err
		}
		return call(cmd.Context(), cfg)
	},
}

func loadClientConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return nil, peer.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	return cfg, nil
}

func call(ctx context.Context, cfg *config.Config) error {
	name := flagName
	if name == "" {
		name, _ = os.Hostname()
	}

	sp := ui.NewConnectionSpinner(peer.StatusConnecting.String())
	sp.Start()
	defer sp.Stop()

	summary, err := peer.Run(ctx, cfg, peer.CallOptions{
		Name:         name,
		Version:      version.Version,
		Pings:        flagPings,
		PingInterval: flagInterval,
		Logger:       zap.L(),
		OnStatus: func(s peer.Status) {
			sp.UpdateMessage(s.String())
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			sp.Stop()
			ui.PrintWarning("Cancelled before meeting anyone")
			return nil
		}
		sp.Error("Call failed")
		return err
	}
	sp.Success("Call ended")

	partner := summary.PartnerID
	if summary.PartnerName != "" {
		partner = summary.PartnerName
	}
	role := "answerer"
	if summary.Initiator {
		role = "caller"
	}

	fmt.Println()
	fmt.Println(ui.PartnerBanner(ui.TruncateString(partner, 40), summary.SessionID, summary.Initiator))
	fmt.Println()
	ui.RenderCallSummary(ui.CallSummary{
		Partner:    ui.TruncateString(partner, 40),
		Session:    summary.SessionID,
		Role:       role,
		RoundTrips: summary.RoundTrips,
		AverageRTT: ui.FormatRTT(summary.AverageRTT),
		Duration:   ui.FormatDuration(summary.Duration),
		Ended:      summary.Reason,
	})
	return nil
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Relay websocket URL (default ws://localhost:8080/ws)")
	callCmd.Flags().StringVar(&flagSTUN, "stun", "", "Custom STUN server")
	callCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	callCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	callCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	callCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	callCmd.Flags().StringVarP(&flagName, "name", "n", "", "Name shown to the stranger (default hostname)")
	callCmd.Flags().IntVar(&flagPings, "pings", 5, "Round trips before hanging up (0 waits for the stranger)")
	callCmd.Flags().DurationVar(&flagInterval, "interval", peer.DefaultPingInterval, "Time between pings")
}
