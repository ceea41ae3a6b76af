package sink

import (
	"context"
	"errors"
	"strings"

	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"github.com/smallbiznis/planbilling/internal/providers/email"
)

var ErrMemberHasNoEmail = errors.New("member_has_no_email")

// Email mails the member using the billing_notice template.
type Email struct {
	provider email.Provider
	members  memberdomain.Service
}

func NewEmail(provider email.Provider, members memberdomain.Service) *Email {
	return &Email{provider: provider, members: members}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Accepts(domain.Type) bool { return true }

func (e *Email) Deliver(ctx context.Context, msg domain.Message) error {
	member, err := e.members.GetMember(ctx, msg.MemberID)
	if err != nil {
		return err
	}
	address := strings.TrimSpace(member.Email)
	if address == "" {
		return ErrMemberHasNoEmail
	}
	return e.provider.SendTemplate(ctx, []string{address}, "billing_notice", map[string]any{
		"subject":         msg.Title,
		"member_name":     member.DisplayName,
		"title":           msg.Title,
		"content":         msg.Content,
		"notification_id": msg.ID,
	})
}
