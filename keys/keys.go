// Package keys manages this node's RSA signing identity: generating it,
// and reading/writing it as a PEM file on disk.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"sync"
)

const (
	pemKeyPath = "priv_key.pem"

	// KeyBits is the RSA modulus size generated for new node identities.
	KeyBits = 2048
)

// PemKey reads and writes this node's RSA private key as a PEM file.
type PemKey struct {
	l    sync.Mutex
	path string
}

// NewPemKey builds a PemKey rooted at base/priv_key.pem.
func NewPemKey(base string) *PemKey {
	return &PemKey{path: filepath.Join(base, pemKeyPath)}
}

// ReadKey loads the private key from disk.
func (k *PemKey) ReadKey() (*rsa.PrivateKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	buf, err := ioutil.ReadFile(k.path)
	if err != nil {
		return nil, err
	}

	return k.ReadKeyFromBuf(buf)
}

// ReadKeyFromBuf parses a PEM-encoded RSA private key from buf.
func (k *PemKey) ReadKeyFromBuf(buf []byte) (*rsa.PrivateKey, error) {
	if len(buf) == 0 {
		return nil, nil
	}

	block, _ := pem.Decode(buf)
	if block == nil {
		return nil, fmt.Errorf("error decoding PEM block from data")
	}

	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// WriteKey persists key to disk as a PEM file, creating the parent
// directory if needed.
func (k *PemKey) WriteKey(key *rsa.PrivateKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	dump, err := ToPemKey(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(path.Dir(k.path), 0700); err != nil {
		return err
	}

	return ioutil.WriteFile(k.path, []byte(dump.PrivateKey), 0600)
}

// PemDump is a PEM-encoded keypair, with the public half also rendered as
// the PEM text that would be attached to a signed audit record.
type PemDump struct {
	PublicKey  string
	PrivateKey string
}

// GeneratePemKey creates a fresh RSA-2048 keypair.
func GeneratePemKey() (*PemDump, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, err
	}
	return ToPemKey(key)
}

// ToPemKey renders priv as a PemDump: its PKCS#1-encoded private key and
// its PKIX-encoded public key, both PEM-armored.
func ToPemKey(priv *rsa.PrivateKey) (*PemDump, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	privDER := x509.MarshalPKCS1PrivateKey(priv)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER})

	return &PemDump{
		PublicKey:  string(pubPEM),
		PrivateKey: string(privPEM),
	}, nil
}
