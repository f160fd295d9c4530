package server

import (
	"testing"
	"time"

	"github.com/tarnish-app/tarnish/internal/config"
)

func TestNewUpstreamClientUsesConfigTimeout(t *testing.T) {
	cfg := &config.Config{
		Network: config.NetworkConfig{
			Timeout: config.Duration(45 * time.Second),
		},
	}

	client := NewUpstreamClient(cfg)
	if client.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %s", client.Timeout)
	}
}

func TestNewUpstreamClientDefaultsToNoTimeout(t *testing.T) {
	client := NewUpstreamClient(&config.Config{})
	if client.Timeout != 0 {
		t.Fatalf("expected no client timeout, got %s", client.Timeout)
	}
	if client.Transport == nil {
		t.Fatalf("expected shared transport clone")
	}
}
