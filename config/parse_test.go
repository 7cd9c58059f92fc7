package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// TestParseHostPort 验证仪器地址规整行为。
func TestParseHostPort(t *testing.T) {
	got, err := ParseHostPort("192.168.1.100", 5025)
	if err != nil {
		t.Fatal(err)
	}
	if got != "192.168.1.100:5025" {
		t.Fatalf("got=%q", got)
	}
	got, err = ParseHostPort("10.0.0.7:5555", 5025)
	if err != nil {
		t.Fatal(err)
	}
	if got != "10.0.0.7:5555" {
		t.Fatalf("got=%q", got)
	}
	if _, err := ParseHostPort("", 5025); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseHostPort("host:notaport", 5025); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseHostPort("host:99999", 5025); err == nil {
		t.Fatalf("expected error")
	}
}

// TestByteSizeUnmarshal 验证 ByteSize 支持从 YAML 文本解析（如 4KB）。
func TestByteSizeUnmarshal(t *testing.T) {
	var cfg struct {
		Size ByteSize `yaml:"size"`
	}
	if err := yaml.Unmarshal([]byte("size: 4KB\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Size.Int64() != 4*1024 {
		t.Fatalf("got=%d", cfg.Size.Int64())
	}
	if err := yaml.Unmarshal([]byte("size: 10MB\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Size.Int64() != 10*1024*1024 {
		t.Fatalf("got=%d", cfg.Size.Int64())
	}
	if err := yaml.Unmarshal([]byte("size: bogus\n"), &cfg); err == nil {
		t.Fatalf("expected error")
	}
}
