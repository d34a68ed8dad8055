package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

type fakeEmitter struct {
	events []Event
}

func (f *fakeEmitter) Emit(_ context.Context, event Event) error {
	f.events = append(f.events, event)
	return nil
}

func TestNotifier_FiresAtThreshold(t *testing.T) {
	emitter := &fakeEmitter{}
	n := NewNotifier(3, emitter)

	n.Archived(testCtx)
	n.Archived(testCtx)
	assert.Empty(t, emitter.events)

	n.Archived(testCtx)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, Event{Name: EventNewItems, Count: 3}, emitter.events[0])

	// One past the threshold starts the next batch, nothing fires.
	n.Archived(testCtx)
	assert.Len(t, emitter.events, 1)
}

func TestNotifier_Disabled(t *testing.T) {
	n := NewNotifier(0, &fakeEmitter{})
	n.Archived(testCtx)

	n = NewNotifier(3, nil)
	n.Archived(testCtx)
}

func TestWebhook_Emit(t *testing.T) {
	var received Event

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer srv.Close()

	hook, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	err = hook.Emit(testCtx, Event{Name: EventNewItems, Count: 10})
	require.NoError(t, err)
	assert.Equal(t, EventNewItems, received.Name)
	assert.Equal(t, 10, received.Count)
}

func TestWebhook_EmitServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	hook, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	assert.Error(t, hook.Emit(testCtx, Event{Name: EventNewItems, Count: 1}))
}
