package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("🔥 %s", n.Title),
			},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Hot score:* %d | <%s|channel>\n%s", n.HotScore, n.URL, n.Body),
			},
		},
	}

	if related := topRelated(n.Related, 3); len(related) > 0 {
		var elements []map[string]any
		for _, c := range related {
			elements = append(elements, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("similar: <%s|%s> (%d)", c.ChannelURL, c.Name, c.HotScore),
			})
		}
		blocks = append(blocks, map[string]any{
			"type":     "context",
			"elements": elements,
		})
	}

	body, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		return errors.Wrap(err, "marshal slack payload")
	}
	return errors.Wrap(postJSON(ctx, s.client, s.webhookURL, body, nil), "slack webhook")
}
