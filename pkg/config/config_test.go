package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig() must validate, got: %v", err)
	}
}

func TestLoadAppliesDefaultsOverPartialDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fragctl.yaml")
	doc := "transport:\n  kind: quic\n  addr: \"127.0.0.1:9000\"\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport.Kind != "quic" || cfg.Transport.Addr != "127.0.0.1:9000" {
		t.Errorf("transport not parsed correctly: %+v", cfg.Transport)
	}
	if cfg.Fragment.MaxFragmentSize != DefaultConfig().Fragment.MaxFragmentSize {
		t.Errorf("unset fragment.max_fragment_size should fall back to the default, got %d", cfg.Fragment.MaxFragmentSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unset log_level should fall back to %q, got %q", "info", cfg.LogLevel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file should return an error")
	}
}

func TestValidateRejectsUndersizedFragment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fragment.MaxFragmentSize = 7
	if err := cfg.Validate(); err == nil {
		t.Error("a max_fragment_size at or below the header size should fail validation")
	}
}

func TestValidateRejectsDropTimeNotExceedingRetransmitTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fragment.DropTime = cfg.Fragment.RetransmitTime
	if err := cfg.Validate(); err == nil {
		t.Error("drop_time equal to retransmit_time should fail validation")
	}
}

func TestValidateRejectsUnknownTransportKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport.Kind = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("an unsupported transport.kind should fail validation")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("an unsupported log_level should fail validation")
	}
}
