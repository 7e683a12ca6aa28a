package logging

import (
	"context"
	"reflect"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	ctx = WithMode(ctx, "replay")
	if got := GetMode(ctx); got != "replay" {
		t.Errorf("GetMode() = %q, want %q", got, "replay")
	}

	ctx = WithConnectionID(ctx, "conn-1")
	if got := GetConnectionID(ctx); got != "conn-1" {
		t.Errorf("GetConnectionID() = %q, want %q", got, "conn-1")
	}
}

func TestContextKeys_Missing(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
	if got := GetMode(ctx); got != "" {
		t.Errorf("GetMode() = %q, want empty", got)
	}
	if got := GetConnectionID(ctx); got != "" {
		t.Errorf("GetConnectionID() = %q, want empty", got)
	}
}

func TestExtractContextFields(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want []any
	}{
		{
			name: "empty context",
			ctx:  context.Background(),
			want: nil,
		},
		{
			name: "request id only",
			ctx:  WithRequestID(context.Background(), "req-1"),
			want: []any{"request_id", "req-1"},
		},
		{
			name: "request id and mode",
			ctx:  WithMode(WithRequestID(context.Background(), "req-1"), "record"),
			want: []any{"request_id", "req-1", "mode", "record"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractContextFields(tt.ctx)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractContextFields() = %v, want %v", got, tt.want)
			}
		})
	}
}
