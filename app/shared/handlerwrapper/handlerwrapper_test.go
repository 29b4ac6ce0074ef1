package handlerwrapper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type testPayload struct {
	ClubSlug string `json:"club_slug"`
	Count    int    `json:"count"`
}

func testDeps() Deps {
	return Deps{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:  noop.NewTracerProvider().Tracer("test"),
		Service: "TestService",
	}
}

func TestWrap(t *testing.T) {
	t.Run("decodes the payload and publishes results", func(t *testing.T) {
		handler := Wrap("TestHandler", testDeps(), func(_ context.Context, p *testPayload) ([]Result, error) {
			assert.Equal(t, "mesa-bmx", p.ClubSlug)
			assert.Equal(t, 7, p.Count)
			return []Result{{Topic: "club.mesa-bmx.public", Payload: p}}, nil
		})

		msg := message.NewMessage(watermill.NewUUID(), []byte(`{"club_slug":"mesa-bmx","count":7}`))
		msg.Metadata.Set("correlation_id", "corr-1")

		out, err := handler(msg)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "club.mesa-bmx.public", out[0].Metadata.Get("topic"))
		assert.Equal(t, "corr-1", out[0].Metadata.Get("correlation_id"))

		var echoed testPayload
		require.NoError(t, json.Unmarshal(out[0].Payload, &echoed))
		assert.Equal(t, 7, echoed.Count)
	})

	t.Run("no results means no outgoing messages", func(t *testing.T) {
		handler := Wrap("TestHandler", testDeps(), func(context.Context, *testPayload) ([]Result, error) {
			return nil, nil
		})

		out, err := handler(message.NewMessage(watermill.NewUUID(), []byte(`{}`)))
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("malformed payload fails before the handler runs", func(t *testing.T) {
		called := false
		handler := Wrap("TestHandler", testDeps(), func(context.Context, *testPayload) ([]Result, error) {
			called = true
			return nil, nil
		})

		_, err := handler(message.NewMessage(watermill.NewUUID(), []byte(`{not json`)))
		require.Error(t, err)
		assert.False(t, called)
	})

	t.Run("handler errors surface to the router", func(t *testing.T) {
		boom := errors.New("downstream failure")
		handler := Wrap("TestHandler", testDeps(), func(context.Context, *testPayload) ([]Result, error) {
			return nil, boom
		})

		_, err := handler(message.NewMessage(watermill.NewUUID(), []byte(`{}`)))
		assert.ErrorIs(t, err, boom)
	})
}
