package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserver_ParserFaultLogsText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	o := NewObserver(slog.New(slog.NewTextHandler(&buf, nil)))

	o.ParserFault(4, "fn broken(", "boom")

	out := buf.String()
	assert.Contains(t, out, "parser panicked")
	assert.Contains(t, out, "fn broken(")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "file_id=4")
}

func TestNewObserver_NilLogger(t *testing.T) {
	t.Parallel()
	o := NewObserver(nil)
	assert.NotNil(t, o.logger)
}

func TestStartBuild_EndIsSafe(t *testing.T) {
	t.Parallel()
	ctx, end := StartBuild(context.Background(), 3)
	_, span := StartPhase(ctx, "phase")
	span.End()
	assert.NotPanics(t, end)
}
