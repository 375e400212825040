package alert

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/elonfeng/playaura/pkg/creator"
)

// Notification is the data sent to alert destinations.
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	URL      string            `json:"url"`
	HotScore int               `json:"hot_score"`
	Creator  creator.Creator   `json:"creator"`
	Related  []creator.Creator `json:"related,omitempty"`
	SentAt   time.Time         `json:"sent_at"`
}

// NewCreatorNotification announces a creator crossing the alert threshold.
func NewCreatorNotification(c creator.Creator, related []creator.Creator, now time.Time) *Notification {
	var parts []string
	if d := c.Stats.SubsDelta7d; d != nil && *d > 0 {
		parts = append(parts, "+"+humanize.Comma(*d)+" subscribers")
	}
	if d := c.Stats.ViewsDelta7d; d != nil && *d > 0 {
		parts = append(parts, "+"+humanize.Comma(*d)+" views")
	}
	if u := c.Stats.Uploads7d; u != nil {
		parts = append(parts, humanize.Comma(*u)+" uploads")
	}
	body := "this week: " + strings.Join(parts, ", ")
	if len(parts) == 0 {
		body = "no weekly telemetry yet"
	}

	return &Notification{
		Title:    fmt.Sprintf("%s is heating up", c.Name),
		Body:     fmt.Sprintf("%s · %s · %s", c.Region, c.CategoryID, body),
		URL:      c.ChannelURL,
		HotScore: c.HotScore,
		Creator:  c,
		Related:  related,
		SentAt:   now.UTC(),
	}
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers. Every notifier
// is tried; failures are joined.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, errors.Wrap(err, notifier.Name()))
		}
	}
	return errors.Join(errs...)
}

// postJSON posts body to url and requires a 2xx response.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "playaura/1.0")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("status %d", resp.StatusCode)
	}
	return nil
}

func topRelated(related []creator.Creator, limit int) []creator.Creator {
	if len(related) > limit {
		return related[:limit]
	}
	return related
}
