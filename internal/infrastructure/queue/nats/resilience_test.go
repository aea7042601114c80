package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
	"github.com/nats-io/nats.go"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "no servers", err: fmt.Errorf("publish: %w", nats.ErrNoServers), retryable: true, record: true},
		{name: "timeout", err: nats.ErrTimeout, retryable: true, record: true},
		{name: "canceled", err: context.Canceled, retryable: false, record: false},
		{name: "bad subject", err: nats.ErrBadSubject, retryable: false, record: false},
		{name: "max payload", err: fmt.Errorf("publish: %w", nats.ErrMaxPayload), retryable: false, record: false},
		{name: "reconnecting", err: nats.ErrConnectionReconnecting, retryable: true, record: true},
		{name: "unknown", err: errors.New("permission denied"), retryable: false, record: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := classifyNATSError(tt.err)
			if class.Retryable != tt.retryable || class.RecordFailure != tt.record {
				t.Fatalf("classifyNATSError(%v) = %+v", tt.err, class)
			}
		})
	}
}

func TestWrapPublishError(t *testing.T) {
	if err := wrapPublishError(nats.ErrConnectionClosed); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	permanent := errors.New("permission denied")
	if err := wrapPublishError(permanent); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary")
	}
}
