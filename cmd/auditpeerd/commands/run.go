package commands

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mosaicnetworks/auditchain/auditchain"
)

// NewRunCmd returns the command that starts an auditpeerd node.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "run a peer",
		PreRunE: loadConfig,
		RunE:    runPeer,
	}
	addRunFlags(cmd)
	return cmd
}

func runPeer(cmd *cobra.Command, args []string) error {
	engine := auditchain.NewEngine(&_config.Peer)

	if err := engine.Init(); err != nil {
		_config.Peer.Logger().WithError(err).Error("cannot initialize engine")
		return err
	}

	engine.Run()

	return nil
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Peer.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Peer.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("moniker", _config.Peer.Moniker, "Optional name")

	cmd.Flags().StringP("listen", "l", _config.Peer.BindAddr, "Listen IP:Port for this peer")
	cmd.Flags().StringP("advertise", "a", _config.Peer.AdvertiseAddr, "Advertise IP:Port for this peer")
	cmd.Flags().String("peers", "", "Comma-separated list of peer IP:Port addresses")
	cmd.Flags().Duration("rpc-timeout", _config.Peer.RPCTimeout, "Per-call RPC deadline")
	cmd.Flags().Int("max-pool", _config.Peer.MaxPool, "Connection pool size max (not read: one connection per peer)")

	cmd.Flags().Bool("no-service", _config.Peer.NoService, "Disable the HTTP status service")
	cmd.Flags().StringP("service-listen", "s", _config.Peer.ServiceAddr, "Listen IP:Port for the HTTP status service")

	cmd.Flags().Bool("strict-verify", _config.Peer.StrictVerify, "Re-verify every audit signature during propose")
	cmd.Flags().Bool("persistent-pool", _config.Peer.PersistentPool, "Back the mempool with a Badger database")

	cmd.Flags().Duration("heartbeat", _config.Peer.HeartbeatTimeout, "Time between heartbeats")
	cmd.Flags().Duration("election-timeout", _config.Peer.ElectionTimeout, "Time between election attempts while leaderless")

	cmd.Flags().Bool("webrtc", _config.Peer.WebRTC, "Use the WebRTC transport instead of TCP")
	cmd.Flags().String("signal-addr", _config.Peer.SignalAddr, "WebRTC signaling server address")
	cmd.Flags().String("signal-realm", _config.Peer.SignalRealm, "WebRTC signaling realm")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	if peers, _ := cmd.Flags().GetString("peers"); peers != "" {
		_config.Peer.Peers = splitPeers(peers)
	}

	viper.SetConfigName("auditpeer")
	viper.AddConfigPath(_config.Peer.DataDir)

	if err := viper.ReadInConfig(); err == nil {
		_config.Peer.Logger().Debugf("using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Peer.Logger().Debugf("no config file found in: %s", _config.Peer.DataDir)
	} else {
		return err
	}

	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	_config.Peer.Logger().WithFields(logrus.Fields{
		"datadir":   _config.Peer.DataDir,
		"listen":    _config.Peer.BindAddr,
		"peers":     _config.Peer.Peers,
		"webrtc":    _config.Peer.WebRTC,
		"strict":    _config.Peer.StrictVerify,
		"persist":   _config.Peer.PersistentPool,
		"heartbeat": _config.Peer.HeartbeatTimeout,
	}).Debug("RUN")

	return nil
}

func splitPeers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
