// Package config holds the runtime configuration of an auditchain peer:
// its network addresses, timing knobs, storage mode, and logger.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	webrtc "github.com/pion/webrtc/v2"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/mosaicnetworks/auditchain/internal/testlog"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing this
	// node's RSA private key.
	DefaultKeyfile = "priv_key.pem"

	// DefaultBadgerDir is the default name of the folder containing the
	// Badger-backed mempool database, used when PersistentPool is set.
	DefaultBadgerDir = "badger_db"

	// DefaultCertFile is the default name of the file containing the TLS
	// certificate for connecting to the WebRTC signaling server.
	DefaultCertFile = "cert.pem"
)

// Default configuration values.
const (
	DefaultLogLevel         = "debug"
	DefaultBindAddr         = "127.0.0.1:1337"
	DefaultServiceAddr      = "127.0.0.1:8000"
	DefaultHeartbeatTimeout = 1000 * time.Millisecond
	DefaultElectionTimeout  = 5000 * time.Millisecond
	DefaultRPCTimeout       = 1000 * time.Millisecond
	DefaultMaxPool          = 2
	DefaultStrictVerify     = false
	DefaultPersistentPool   = false
	DefaultWebRTC           = false
	DefaultSignalAddr       = "127.0.0.1:2443"
	DefaultSignalRealm      = "main"
	DefaultSignalSkipVerify = false
	DefaultICEAddress       = "stun:stun.l.google.com:19302"
	DefaultICEUsername      = ""
	DefaultICEPassword      = ""
)

// Config contains all the configuration properties of an auditchain peer.
type Config struct {
	// DataDir is the top-level directory containing this node's key,
	// chain metadata, block bodies, and (if PersistentPool is set)
	// mempool database.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// BindAddr is the local address:port where this node serves RPCs to
	// clients and peers.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is the address other peers should use to reach this
	// node; if empty, BindAddr is advertised.
	AdvertiseAddr string `mapstructure:"advertise"`

	// Peers is the list of other peer addresses this node gossips audits
	// and blocks with, and participates in leader election with.
	Peers []string `mapstructure:"peers"`

	// NoService disables the read-only HTTP API.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// HeartbeatTimeout is the interval at which this node sends
	// SendHeartbeat RPCs to its peers.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`

	// ElectionTimeout is the interval at which this node, while it knows
	// of no leader, calls TriggerElection on its peers.
	ElectionTimeout time.Duration `mapstructure:"election-timeout"`

	// RPCTimeout bounds every outbound peer RPC call.
	RPCTimeout time.Duration `mapstructure:"rpc-timeout"`

	// MaxPool is accepted from flags and config files but not read by
	// rpcnet.Pool, which keeps a single connection per peer.
	MaxPool int `mapstructure:"max-pool"`

	// StrictVerify, when true, re-checks every audit's signature on
	// ProposeBlock instead of trusting the gossip path that
	// already verified it once at ingress.
	StrictVerify bool `mapstructure:"strict-verify"`

	// PersistentPool activates a Badger-backed durable mempool instead of
	// a purely in-memory one.
	PersistentPool bool `mapstructure:"persistent-pool"`

	// WebRTC determines whether to use a WebRTC transport in place of the
	// default TCP/JSON-RPC transport. WebRTC relies on a signaling
	// server at SignalAddr.
	WebRTC bool `mapstructure:"webrtc"`

	// SignalAddr is the IP:PORT of the WebRTC signaling server. Ignored
	// when WebRTC is not enabled.
	SignalAddr string `mapstructure:"signal-addr"`

	// SignalRealm is an administrative domain within the signaling
	// server; signaling messages only route within a realm.
	SignalRealm string `mapstructure:"signal-realm"`

	// SignalSkipVerify disables TLS certificate verification against the
	// signaling server. Testing only.
	SignalSkipVerify bool `mapstructure:"signal-skip-verify"`

	// ICEAddress is the URI of the STUN/TURN server used to establish
	// WebRTC connections.
	ICEAddress string `mapstructure:"ice-addr"`

	// ICEUsername authenticates with the server at ICEAddress.
	ICEUsername string `mapstructure:"ice-username"`

	// ICEPassword authenticates with the server at ICEAddress.
	ICEPassword string `mapstructure:"ice-password"`

	// Moniker is this node's friendly name, used only in logging.
	Moniker string `mapstructure:"moniker"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a Config with every field set to its default
// value, even fields that cancel each other out (e.g. when WebRTC is
// false, the Signal/ICE fields are simply unused).
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		BindAddr:         DefaultBindAddr,
		ServiceAddr:      DefaultServiceAddr,
		HeartbeatTimeout: DefaultHeartbeatTimeout,
		ElectionTimeout:  DefaultElectionTimeout,
		RPCTimeout:       DefaultRPCTimeout,
		MaxPool:          DefaultMaxPool,
		StrictVerify:     DefaultStrictVerify,
		PersistentPool:   DefaultPersistentPool,
		WebRTC:           DefaultWebRTC,
		SignalAddr:       DefaultSignalAddr,
		SignalRealm:      DefaultSignalRealm,
		SignalSkipVerify: DefaultSignalSkipVerify,
		ICEAddress:       DefaultICEAddress,
		ICEUsername:      DefaultICEUsername,
		ICEPassword:      DefaultICEPassword,
	}
}

// NewTestConfig returns a Config with default values and a logger that
// writes through t.Log, for use from tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = testlog.NewTestLogger(t, level)
	return config
}

// Keyfile returns the full path of the file containing this node's
// private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// CertFile returns the full path of the file containing the signal-server
// TLS certificate.
func (c *Config) CertFile() string {
	return filepath.Join(c.DataDir, DefaultCertFile)
}

// BadgerDir returns the full path of the mempool's Badger database,
// applicable only when PersistentPool is set.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.DataDir, DefaultBadgerDir)
}

// Advertise returns the address this node advertises to peers.
func (c *Config) Advertise() string {
	if c.AdvertiseAddr != "" {
		return c.AdvertiseAddr
	}
	return c.BindAddr
}

// ICEServers returns the list of ICE servers used by the WebRTC
// transport to connect to peers.
func (c *Config) ICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs:           []string{c.ICEAddress},
			Username:       c.ICEUsername,
			Credential:     c.ICEPassword,
			CredentialType: webrtc.ICECredentialTypePassword,
		},
	}
}

// Logger returns a formatted logrus Entry, with prefix set to
// "auditpeerd". If DataDir is set, error-level logs are additionally
// mirrored to a file under it.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.DataDir != "" {
			if f, err := os.OpenFile(filepath.Join(c.DataDir, "auditpeerd_error.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
				f.Close()
				c.logger.Hooks.Add(lfshook.NewHook(
					lfshook.PathMap{logrus.ErrorLevel: filepath.Join(c.DataDir, "auditpeerd_error.log")},
					&logrus.TextFormatter{},
				))
			}
		}
	}
	return c.logger.WithField("prefix", "auditpeerd")
}

// DefaultDataDir returns the default directory for node config and data,
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	home := HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, ".Auditchain")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Auditchain")
	default:
		return filepath.Join(home, ".auditchain")
	}
}

// HomeDir returns the current user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a logrus log level, defaulting to Debug.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
