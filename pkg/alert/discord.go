package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var links []string
	for _, c := range topRelated(n.Related, 3) {
		links = append(links, fmt.Sprintf("• [%s](%s) %d", c.Name, c.ChannelURL, c.HotScore))
	}

	description := fmt.Sprintf("**Hot score:** %d\n\n%s", n.HotScore, n.Body)
	if len(links) > 0 {
		description += "\n\n**Similar creators**\n" + strings.Join(links, "\n")
	}

	embed := map[string]any{
		"title":       fmt.Sprintf("🔥 %s", n.Title),
		"url":         n.URL,
		"description": description,
		"color":       0xFF6600,
		"timestamp":   n.SentAt.Format(time.RFC3339),
	}
	if thumb := n.Creator.ThumbnailURL; thumb != "" {
		embed["thumbnail"] = map[string]any{"url": thumb}
	}

	body, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return errors.Wrap(err, "marshal discord payload")
	}
	return errors.Wrap(postJSON(ctx, d.client, d.webhookURL, body, nil), "discord webhook")
}
