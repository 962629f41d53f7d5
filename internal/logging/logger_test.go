package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "disabled"}) })

	Info().Str("stage", "intent").Msg("hello")
	Debug().Msg("suppressed")

	out := buf.String()
	assert.Contains(t, out, `"stage":"intent"`)
	assert.Contains(t, out, `"message":"hello"`)
	assert.NotContains(t, out, "suppressed")
}

func TestCtx_CarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "disabled"}) })

	ctx := ContextWithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))

	Ctx(ctx).Info().Msg("with id")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
	assert.Equal(t, zerolog.Disabled, parseLevel("disabled"))
}

func TestNewRequestID_Unique(t *testing.T) {
	assert.NotEqual(t, NewRequestID(), NewRequestID())
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
