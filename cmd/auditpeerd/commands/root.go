// Package commands wires the auditpeerd CLI: a cobra root command with
// run and keygen subcommands, configured from flags and an optional
// auditpeer.toml file via viper.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/mosaicnetworks/auditchain/config"
)

var _config = NewDefaultCLIConfig()

// RootCmd is the root command for auditpeerd.
var RootCmd = &cobra.Command{
	Use:              "auditpeerd",
	Short:            "audit log replication peer",
	TraverseChildren: true,
}

// CLIConfig wraps config.Config with the settings specific to the CLI
// rather than the engine itself.
type CLIConfig struct {
	Peer config.Config `mapstructure:",squash"`
}

// NewDefaultCLIConfig returns a CLIConfig populated with defaults.
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Peer: *config.NewDefaultConfig(),
	}
}

func init() {
	RootCmd.AddCommand(NewRunCmd())
	RootCmd.AddCommand(NewKeygenCmd())
}
