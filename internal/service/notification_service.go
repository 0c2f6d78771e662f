package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elimu-sms/admissions-api/internal/models"
	"github.com/elimu-sms/admissions-api/pkg/jobs"
)

// NotificationSink delivers a stage-transition notification to its final
// destination.
type NotificationSink interface {
	Notify(ctx context.Context, event models.StageTransitionEvent) error
}

// NotificationService fans committed stage transitions out to a sink through
// a background worker queue. Dispatch never blocks the request path and a
// failed delivery never rolls a transition back.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService wires the sink behind a worker queue.
func NewNotificationService(sink NotificationSink, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.StageTransitionEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return sink.Notify(ctx, event)
	}
	return &NotificationService{
		queue:  jobs.NewQueue("notifications", handler, cfg),
		logger: logger,
	}
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch implements EventDispatcher.
func (s *NotificationService) Dispatch(event models.StageTransitionEvent) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "stage_transition",
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("application_id", event.ApplicationID),
			zap.Error(err))
	}
}

// LogSink records notifications in the application log. Used when no
// webhook endpoint is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Notify implements NotificationSink.
func (s *LogSink) Notify(_ context.Context, event models.StageTransitionEvent) error {
	s.logger.Info("stage transition",
		zap.String("application_id", event.ApplicationID),
		zap.String("reference", event.Reference),
		zap.String("from_stage", string(event.FromStage)),
		zap.String("to_stage", string(event.ToStage)))
	return nil
}

// WebhookSink posts notifications as JSON to an external endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink constructs a webhook sink for the given endpoint.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify implements NotificationSink.
func (s *WebhookSink) Notify(ctx context.Context, event models.StageTransitionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
