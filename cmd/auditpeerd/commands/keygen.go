package commands

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mosaicnetworks/auditchain/keys"
)

var (
	keygenDataDir string
	pubKeyFile    string
)

// NewKeygenCmd returns the command that creates a new RSA identity for a
// peer, writing the private key under its data directory and the public
// key alongside it.
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a new private/public key pair",
		RunE:  keygen,
	}

	addKeygenFlags(cmd)

	return cmd
}

func addKeygenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&keygenDataDir, "datadir", _config.Peer.DataDir, "Directory where the private key will be written")
	cmd.Flags().StringVar(&pubKeyFile, "pub", "", "File where the public key will be written (default DATADIR/key.pub)")
}

func keygen(cmd *cobra.Command, args []string) error {
	pemKey := keys.NewPemKey(keygenDataDir)

	if _, err := pemKey.ReadKey(); err == nil {
		return fmt.Errorf("a key already lives under: %s", keygenDataDir)
	}

	dump, err := keys.GeneratePemKey()
	if err != nil {
		return fmt.Errorf("generating RSA key: %s", err)
	}

	priv, err := pemKey.ReadKeyFromBuf([]byte(dump.PrivateKey))
	if err != nil {
		return fmt.Errorf("parsing generated key: %s", err)
	}

	if err := pemKey.WriteKey(priv); err != nil {
		return fmt.Errorf("writing private key: %s", err)
	}

	fmt.Printf("Your private key has been saved to: %s\n", filepath.Join(keygenDataDir, "priv_key.pem"))

	if pubKeyFile == "" {
		pubKeyFile = filepath.Join(keygenDataDir, "key.pub")
	}

	if err := os.MkdirAll(path.Dir(pubKeyFile), 0700); err != nil {
		return fmt.Errorf("writing public key: %s", err)
	}

	if err := ioutil.WriteFile(pubKeyFile, []byte(dump.PublicKey), 0600); err != nil {
		return fmt.Errorf("writing public key: %s", err)
	}

	fmt.Printf("Your public key has been saved to: %s\n", pubKeyFile)

	return nil
}
