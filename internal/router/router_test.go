package router

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// fakeSender satisfies overlay.Sender without a network connection.
type fakeSender struct {
	sent []string
}

func (f *fakeSender) Send(event string, data interface{}) error {
	f.sent = append(f.sent, event)
	return nil
}

func (f *fakeSender) RemoteAddr() string { return "fake:0" }

// countingObserver records dispatch outcomes.
type countingObserver struct {
	rejected   int
	dispatched map[string]int
	failed     map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		dispatched: make(map[string]int),
		failed:     make(map[string]int),
	}
}

func (o *countingObserver) EnvelopeRejected()            { o.rejected++ }
func (o *countingObserver) EventDispatched(event string) { o.dispatched[event]++ }
func (o *countingObserver) HandlerFailed(event string)   { o.failed[event]++ }

func newTestRouter(t *testing.T, observer Observer) *Router {
	t.Helper()
	logger := log.New(logWriter{t}, "[router-test] ", 0)
	return New(logger, observer)
}

type logWriter struct{ t *testing.T }

func (w logWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func envelope(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	raw, err := overlay.Encode(event, data)
	require.NoError(t, err)
	return raw
}

func TestDispatchInvokesHandler(t *testing.T) {
	obs := newCountingObserver()
	r := newTestRouter(t, obs)

	var gotData json.RawMessage
	var gotFrom overlay.Sender
	r.Register("chat.message", func(from overlay.Sender, data json.RawMessage) error {
		gotFrom = from
		gotData = data
		return nil
	})

	sender := &fakeSender{}
	r.Dispatch(sender, envelope(t, "chat.message", map[string]string{"text": "hi"}))

	assert.Same(t, sender, gotFrom)
	assert.JSONEq(t, `{"text":"hi"}`, string(gotData))
	assert.Equal(t, 1, obs.dispatched["chat.message"])
	assert.Equal(t, 0, obs.rejected)
}

func TestRegisterLastWins(t *testing.T) {
	r := newTestRouter(t, nil)

	var calls []string
	r.Register("evt", func(overlay.Sender, json.RawMessage) error {
		calls = append(calls, "first")
		return nil
	})
	r.Register("evt", func(overlay.Sender, json.RawMessage) error {
		calls = append(calls, "second")
		return nil
	})

	r.Dispatch(&fakeSender{}, envelope(t, "evt", nil))
	assert.Equal(t, []string{"second"}, calls)
}

func TestDispatchDropsMalformedMessage(t *testing.T) {
	obs := newCountingObserver()
	r := newTestRouter(t, obs)

	called := false
	r.Register("evt", func(overlay.Sender, json.RawMessage) error {
		called = true
		return nil
	})

	for _, raw := range []string{
		`not json`,
		`{"data":{}}`,
		`{"event":1,"data":{}}`,
		`{"event":"evt"}`,
	} {
		r.Dispatch(&fakeSender{}, []byte(raw))
	}

	assert.False(t, called)
	assert.Equal(t, 4, obs.rejected)
}

func TestDispatchDropsUnknownEvent(t *testing.T) {
	obs := newCountingObserver()
	r := newTestRouter(t, obs)

	r.Dispatch(&fakeSender{}, envelope(t, "nobody.home", nil))
	assert.Equal(t, 1, obs.rejected)
}

func TestDispatchContainsHandlerError(t *testing.T) {
	obs := newCountingObserver()
	r := newTestRouter(t, obs)

	r.Register("evt", func(overlay.Sender, json.RawMessage) error {
		return errors.New("boom")
	})

	r.Dispatch(&fakeSender{}, envelope(t, "evt", nil))
	assert.Equal(t, 1, obs.failed["evt"])
	assert.Equal(t, 0, obs.dispatched["evt"])
}

func TestDispatchContainsHandlerPanic(t *testing.T) {
	obs := newCountingObserver()
	r := newTestRouter(t, obs)

	r.Register("evt", func(overlay.Sender, json.RawMessage) error {
		panic("boom")
	})

	// Must not propagate the panic.
	r.Dispatch(&fakeSender{}, envelope(t, "evt", nil))
	assert.Equal(t, 1, obs.failed["evt"])

	// The router stays usable afterwards.
	r.Register("evt", func(overlay.Sender, json.RawMessage) error { return nil })
	r.Dispatch(&fakeSender{}, envelope(t, "evt", nil))
	assert.Equal(t, 1, obs.dispatched["evt"])
}

func TestDispatchWithNilObserver(t *testing.T) {
	r := newTestRouter(t, nil)
	r.Register("evt", func(overlay.Sender, json.RawMessage) error { return nil })

	// None of these paths may touch the nil observer.
	r.Dispatch(&fakeSender{}, []byte(`garbage`))
	r.Dispatch(&fakeSender{}, envelope(t, "unknown", nil))
	r.Dispatch(&fakeSender{}, envelope(t, "evt", nil))
}
