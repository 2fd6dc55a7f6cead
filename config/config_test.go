package config

import (
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()
	if c.BindAddr != DefaultBindAddr {
		t.Fatalf("BindAddr = %s, want %s", c.BindAddr, DefaultBindAddr)
	}
	if c.StrictVerify != DefaultStrictVerify {
		t.Fatal("expected StrictVerify to default to false")
	}
}

func TestKeyfileAndBadgerDirUnderDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.DataDir = "/tmp/nodedata"

	if want := filepath.Join("/tmp/nodedata", DefaultKeyfile); c.Keyfile() != want {
		t.Fatalf("Keyfile() = %s, want %s", c.Keyfile(), want)
	}
	if want := filepath.Join("/tmp/nodedata", DefaultBadgerDir); c.BadgerDir() != want {
		t.Fatalf("BadgerDir() = %s, want %s", c.BadgerDir(), want)
	}
}

func TestAdvertiseFallsBackToBindAddr(t *testing.T) {
	c := NewDefaultConfig()
	c.BindAddr = "10.0.0.1:1337"

	if got := c.Advertise(); got != "10.0.0.1:1337" {
		t.Fatalf("Advertise() = %s, want BindAddr fallback", got)
	}

	c.AdvertiseAddr = "203.0.113.1:1337"
	if got := c.Advertise(); got != "203.0.113.1:1337" {
		t.Fatalf("Advertise() = %s, want AdvertiseAddr", got)
	}
}

func TestLogLevelDefaultsToDebug(t *testing.T) {
	if LogLevel("bogus") != LogLevel("debug") {
		t.Fatal("expected unrecognized level to default to debug")
	}
}
