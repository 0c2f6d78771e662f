package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-sms/admissions-api/internal/models"
	"github.com/elimu-sms/admissions-api/pkg/jobs"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.StageTransitionEvent
	done   chan struct{}
}

func (s *recordingSink) Notify(_ context.Context, event models.StageTransitionEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	select {
	case s.done <- struct{}{}:
	default:
	}
	return nil
}

func TestNotificationServiceDeliversThroughQueue(t *testing.T) {
	sink := &recordingSink{done: make(chan struct{}, 1)}
	svc := NewNotificationService(sink, jobs.QueueConfig{Workers: 1}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Dispatch(models.StageTransitionEvent{
		ApplicationID: "app-1",
		Reference:     "APP-2026-0001",
		FromStage:     models.StageSubmitted,
		ToStage:       models.StageDocumentsPending,
	})

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	assert.Equal(t, "APP-2026-0001", sink.events[0].Reference)
}

func TestDispatchBeforeStartDoesNotPanic(t *testing.T) {
	sink := &recordingSink{done: make(chan struct{}, 1)}
	svc := NewNotificationService(sink, jobs.QueueConfig{Workers: 1}, nil)

	// Enqueue fails and is logged; the caller must never observe it.
	svc.Dispatch(models.StageTransitionEvent{ApplicationID: "app-1"})
}

func TestWebhookSinkPostsEvent(t *testing.T) {
	received := make(chan models.StageTransitionEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var event models.StageTransitionEvent
		require.NoError(t, json.Unmarshal(body, &event))
		received <- event
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Notify(context.Background(), models.StageTransitionEvent{
		ApplicationID: "app-1",
		Reference:     "APP-2026-0001",
		FromStage:     models.StagePaymentPending,
		ToStage:       models.StagePaymentRecorded,
	})
	require.NoError(t, err)

	event := <-received
	assert.Equal(t, models.StagePaymentRecorded, event.ToStage)
}

func TestWebhookSinkRejectsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Notify(context.Background(), models.StageTransitionEvent{ApplicationID: "app-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
