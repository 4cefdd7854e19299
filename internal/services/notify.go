package services

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/smartwake/internal/shared"
)

// Notification is one scheduled local notification.
type Notification struct {
	ID    int       `json:"id"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

type notificationRequest struct {
	Action string `json:"action"`
	Notification
}

// WebhookNotifier forwards schedule and cancel requests to a notification endpoint.
type WebhookNotifier struct {
	client *Client
	path   string
	logger *log.Logger
}

// NewWebhookNotifier posts to path on client's base URL. An empty path means "/notifications".
func NewWebhookNotifier(client *Client, path string, logger *log.Logger) *WebhookNotifier {
	if path == "" {
		path = "/notifications"
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &WebhookNotifier{client: client, path: path, logger: shared.WithLogger(logger, "component", "webhook")}
}

func (n *WebhookNotifier) Schedule(ctx context.Context, id int, title, body string, at time.Time) error {
	_, err := n.client.PostJSON(ctx, n.path, notificationRequest{
		Action:       "schedule",
		Notification: Notification{ID: id, Title: title, Body: body, At: at},
	})
	if err != nil {
		return err
	}
	n.logger.Debug("scheduled notification", "id", id, "at", at)
	return nil
}

func (n *WebhookNotifier) Cancel(ctx context.Context, id int) error {
	_, err := n.client.PostJSON(ctx, n.path, notificationRequest{
		Action:       "cancel",
		Notification: Notification{ID: id},
	})
	if err != nil {
		return err
	}
	n.logger.Debug("cancelled notification", "id", id)
	return nil
}

// ConsoleNotifier logs notifications and keeps the pending set in memory.
type ConsoleNotifier struct {
	mu      sync.Mutex
	pending map[int]Notification
	logger  *log.Logger
}

func NewConsoleNotifier(logger *log.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &ConsoleNotifier{
		pending: make(map[int]Notification),
		logger:  shared.WithLogger(logger, "component", "notifier"),
	}
}

func (n *ConsoleNotifier) Schedule(_ context.Context, id int, title, body string, at time.Time) error {
	n.mu.Lock()
	n.pending[id] = Notification{ID: id, Title: title, Body: body, At: at}
	n.mu.Unlock()
	n.logger.Info("notification scheduled", "id", id, "title", title, "at", at.Format(time.RFC3339))
	return nil
}

func (n *ConsoleNotifier) Cancel(_ context.Context, id int) error {
	n.mu.Lock()
	_, ok := n.pending[id]
	delete(n.pending, id)
	n.mu.Unlock()
	if ok {
		n.logger.Info("notification cancelled", "id", id)
	}
	return nil
}

// Pending returns scheduled notifications ordered by fire time.
func (n *ConsoleNotifier) Pending() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, 0, len(n.pending))
	for _, p := range n.pending {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Notification) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
