package store

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestIsBusy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"table locked", errors.New("database table is locked"), true},
		{"busy code", errors.New("SQLITE_BUSY: database busy"), true},
		{"constraint", errors.New("UNIQUE constraint failed"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBusy(tt.err); got != tt.want {
				t.Errorf("isBusy(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryRecoversFromContention(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), zap.NewNop(), "test", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), zap.NewNop(), "test", func() error {
		attempts++
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != writeMaxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, writeMaxAttempts)
	}
}

func TestWithRetryNonBusyFailsImmediately(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), zap.NewNop(), "test", func() error {
		attempts++
		return errors.New("syntax error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-busy errors do not retry)", attempts)
	}
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, zap.NewNop(), "test", func() error {
		return errors.New("database is locked")
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
