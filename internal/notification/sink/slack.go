package sink

import (
	"context"
	"fmt"

	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"github.com/smallbiznis/planbilling/internal/providers/slack"
)

// Slack alerts the ops channel. Only failures are posted.
type Slack struct {
	provider  slack.Provider
	channelID string
}

func NewSlack(provider slack.Provider, channelID string) *Slack {
	return &Slack{provider: provider, channelID: channelID}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Accepts(t domain.Type) bool { return t.IsFailure() }

func (s *Slack) Deliver(ctx context.Context, msg domain.Message) error {
	text := fmt.Sprintf(":rotating_light: [%s] member %d: %s\n%s", msg.Type, msg.MemberID, msg.Title, msg.Content)
	return s.provider.PostMessage(ctx, s.channelID, text)
}
