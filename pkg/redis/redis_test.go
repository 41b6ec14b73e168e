package redis

import (
	"testing"

	"github.com/yi-nology/park_registry/pkg/config"
)

func TestNewClientDisabled(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Enabled: false})
	if client != nil || err != nil {
		t.Fatalf("expected nil client without redis, got %v %v", client, err)
	}
}

func TestNewClientRequiresChannel(t *testing.T) {
	if _, err := NewClient(config.RedisConfig{Enabled: true, Address: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected an error without a change feed channel")
	}
}
