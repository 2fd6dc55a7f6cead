package keys

import (
	"io/ioutil"
	"os"
	"reflect"
	"testing"
)

func TestPemKeyWriteThenRead(t *testing.T) {
	dir, err := ioutil.TempDir("", "auditchain-keys")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer os.RemoveAll(dir)

	pk := NewPemKey(dir)

	if _, err := pk.ReadKey(); err == nil {
		t.Fatal("ReadKey should error before any key is written")
	}

	key, err := GeneratePemKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	priv, err := pk.ReadKeyFromBuf([]byte(key.PrivateKey))
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := pk.WriteKey(priv); err != nil {
		t.Fatalf("err: %v", err)
	}

	reread, err := pk.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(reread.N, priv.N) || !reflect.DeepEqual(reread.D, priv.D) {
		t.Fatal("reread key does not match written key")
	}
}

func TestReadKeyFromBufEmpty(t *testing.T) {
	pk := NewPemKey("unused")
	key, err := pk.ReadKeyFromBuf(nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if key != nil {
		t.Fatal("expected nil key for empty buffer")
	}
}

func TestReadKeyFromBufMalformed(t *testing.T) {
	pk := NewPemKey("unused")
	if _, err := pk.ReadKeyFromBuf([]byte("not pem")); err == nil {
		t.Fatal("expected error decoding malformed PEM")
	}
}

func TestToPemKeyRoundTrip(t *testing.T) {
	dump, err := GeneratePemKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if dump.PublicKey == "" || dump.PrivateKey == "" {
		t.Fatal("expected both public and private PEM text")
	}
}
