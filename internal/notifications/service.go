package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lapse/internal/config"
)

const userAgent = "lapse/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventRenderSucceeded Event = "render_succeeded"
	EventRenderFailed    Event = "render_failed"
	EventBatchCompleted  Event = "batch_completed"
	EventTest            Event = "test"
)

// Payload carries the event-specific values used to build the message.
type Payload map[string]any

// Service defines the notification surface exposed to lapse components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRenderSucceeded: cfg.Notifications.RenderSuccess,
			EventRenderFailed:    cfg.Notifications.RenderFailure,
			EventBatchCompleted:  cfg.Notifications.BatchComplete,
			EventTest:            true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := buildMessage(event, payload)
	if !ok {
		return fmt.Errorf("unsupported notification event %q", event)
	}
	return n.send(ctx, msg)
}

func buildMessage(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRenderSucceeded:
		body := fmt.Sprintf("Timelapse ready: %s", payloadString(payload, "output"))
		if camera := payloadString(payload, "camera"); camera != "" {
			body = fmt.Sprintf("%s\nCamera: %s", body, camera)
		}
		if warn := payloadString(payload, "scriptErrors"); warn != "" {
			body = fmt.Sprintf("%s\nScript warnings: %s", body, warn)
		}
		return message{
			title: "lapse - Render Complete",
			body:  body,
			tags:  []string{"lapse", "render", "completed"},
		}, true
	case EventRenderFailed:
		body := fmt.Sprintf("Render failed for job %s", payloadString(payload, "job"))
		if kind := payloadString(payload, "kind"); kind != "" {
			body = fmt.Sprintf("%s (%s)", body, kind)
		}
		if detail := payloadString(payload, "message"); detail != "" {
			body = fmt.Sprintf("%s: %s", body, detail)
		}
		return message{
			title:    "lapse - Render Failed",
			body:     body,
			tags:     []string{"lapse", "render", "error"},
			priority: "high",
		}, true
	case EventBatchCompleted:
		succeeded := payloadInt(payload, "succeeded")
		failed := payloadInt(payload, "failed")
		duration := payloadDuration(payload, "duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		title := "lapse - Queue Complete"
		body := fmt.Sprintf("Render queue complete: %d rendered in %s", succeeded, duration)
		if failed > 0 {
			title = "lapse - Queue Complete (with errors)"
			body = fmt.Sprintf("Render queue complete: %d succeeded, %d failed in %s", succeeded, failed, duration)
		}
		return message{
			title: title,
			body:  body,
			tags:  []string{"lapse", "queue", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "lapse - Test",
			body:     "Notification system test",
			tags:     []string{"lapse", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(p Payload, key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func payloadInt(p Payload, key string) int {
	if v, ok := p[key].(int); ok {
		return v
	}
	return 0
}

func payloadDuration(p Payload, key string) time.Duration {
	if v, ok := p[key].(time.Duration); ok {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
