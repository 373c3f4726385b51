package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewSessionRedis_Errors(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"bad scheme", "http://localhost:6379", "parse redis URL"},
		{"unreachable", "redis://127.0.0.1:1/0", "after 2 attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSessionRedis(context.Background(), tt.url,
				RedisOptions{Attempts: 2, Backoff: 10 * time.Millisecond}, zerolog.Nop())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestNewSessionRedis_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSessionRedis(ctx, "redis://127.0.0.1:1/0", RedisOptions{Attempts: 5, Backoff: time.Hour}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error")
	}
}
