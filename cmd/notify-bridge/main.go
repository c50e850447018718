package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modrelay/backend/internal/config"
	"github.com/modrelay/backend/internal/db"
	"github.com/modrelay/backend/internal/events"
	"go.uber.org/zap"
)

// notify-bridge subscribes to the moderation stream and forwards each
// event to a chat webhook as {"text": ...}.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.NotifyWebhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL is required")
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	fwd := &forwarder{
		url:    cfg.NotifyWebhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	subscriber := events.NewRedisSubscriber(rdb, log)
	if err := subscriber.Subscribe(ctx, events.StreamModeration, func(event events.Event) {
		fwd.forward(ctx, event)
	}); err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("notify-bridge started", zap.String("stream", events.StreamModeration))
	<-ctx.Done()
	log.Info("shutting down notify-bridge")
}

type forwarder struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func (f *forwarder) forward(ctx context.Context, event events.Event) {
	body, err := json.Marshal(map[string]string{"text": formatEvent(event)})
	if err != nil {
		f.log.Warn("failed to encode notification", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		f.log.Warn("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("failed to forward notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.log.Warn("webhook returned non-2xx", zap.Int("status", resp.StatusCode), zap.String("type", event.Type))
		return
	}
	f.log.Info("notification forwarded", zap.String("type", event.Type))
}

// formatEvent renders "[Ban] eve#9: spam (2026-10-16 12:30:45)".
func formatEvent(event events.Event) string {
	action, _ := event.Payload["action"].(string)
	subject, _ := event.Payload["subject"].(string)
	if action == "" || subject == "" {
		return fmt.Sprintf("Event: %s", event.Type)
	}

	text := fmt.Sprintf("[%s] %s", action, subject)
	if reason, _ := event.Payload["reason"].(string); reason != "" {
		text += ": " + reason
	}
	if ts, _ := event.Payload["timestamp"].(string); ts != "" {
		text += " (" + ts + ")"
	}
	return text
}
