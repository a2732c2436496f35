package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slidecue/internal/config"
)

const userAgent = "slidecue/1.0"

// Service sends run lifecycle notifications.
type Service interface {
	RunCompleted(ctx context.Context, title string, found, pages int, mergedPath string) error
	RunFailed(ctx context.Context, title, reason string) error
	BatchCompleted(ctx context.Context, processed, failed int, elapsed time.Duration) error
}

// NewService builds an ntfy-backed Service, or a no-op one when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) RunCompleted(ctx context.Context, title string, found, pages int, mergedPath string) error {
	message := fmt.Sprintf("Slides aligned: %s (%d of %d slides)", strings.TrimSpace(title), found, pages)
	if mergedPath = strings.TrimSpace(mergedPath); mergedPath != "" {
		message += "\nSubtitles: " + mergedPath
	}
	return n.send(ctx, payload{
		title:   "slidecue - Run Complete",
		message: message,
		tags:    []string{"slidecue", "run", "completed"},
	})
}

func (n *ntfyService) RunFailed(ctx context.Context, title, reason string) error {
	return n.send(ctx, payload{
		title:    "slidecue - Run Failed",
		message:  fmt.Sprintf("%s: %s", strings.TrimSpace(title), strings.TrimSpace(reason)),
		tags:     []string{"slidecue", "run", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) BatchCompleted(ctx context.Context, processed, failed int, elapsed time.Duration) error {
	data := payload{
		title:   "slidecue - Batch Complete",
		message: fmt.Sprintf("Processed %d lectures in %s (%d failed)", processed, elapsed.Round(time.Second), failed),
		tags:    []string{"slidecue", "batch", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

type noopService struct{}

func (noopService) RunCompleted(context.Context, string, int, int, string) error  { return nil }
func (noopService) RunFailed(context.Context, string, string) error               { return nil }
func (noopService) BatchCompleted(context.Context, int, int, time.Duration) error { return nil }
