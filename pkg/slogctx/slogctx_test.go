package slogctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("falls back to default", func(t *testing.T) {
		t.Parallel()

		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()

		ctx := ContextWithLogger(context.Background(), nil)
		assert.Same(t, slog.Default(), FromContext(ctx))
	})

	t.Run("returns stored logger", func(t *testing.T) {
		t.Parallel()

		l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		ctx := ContextWithLogger(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("With attaches attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ctx := ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
		ctx = With(ctx, slog.Int("lane", 2))

		FromContext(ctx).Info("hello")
		assert.Contains(t, buf.String(), "lane=2")
	})
}
