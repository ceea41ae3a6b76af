package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	"github.com/smallbiznis/planbilling/internal/notification/domain"
	"github.com/smallbiznis/planbilling/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestKafkaPublishesJSONKeyedByMember(t *testing.T) {
	producer := &fakeProducer{}
	sink := NewKafka(producer, "planbilling.notifications")
	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-1")

	msg := domain.Message{ID: "01J", MemberID: 42, Type: domain.TypePaymentSucceeded, Title: "Paid"}
	require.NoError(t, sink.Deliver(ctx, msg))

	require.Len(t, producer.records, 1)
	record := producer.records[0]
	assert.Equal(t, "planbilling.notifications", record.Topic)
	assert.Equal(t, "42", string(record.Key))

	var decoded domain.Message
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, msg.ID, decoded.ID)

	headers := map[string]string{}
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "PAYMENT_SUCCEEDED", headers["type"])
	assert.Equal(t, "cid-1", headers["correlation_id"])
}

func TestKafkaReturnsProduceError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	err := NewKafka(producer, "t").Deliver(context.Background(), domain.Message{MemberID: 1})
	require.EqualError(t, err, "broker down")
}

type fakeMembers struct {
	memberdomain.Service
	member *memberdomain.Member
}

func (f fakeMembers) GetMember(ctx context.Context, id int64) (*memberdomain.Member, error) {
	if f.member == nil {
		return nil, memberdomain.ErrMemberNotFound
	}
	return f.member, nil
}

type fakeEmail struct {
	to   []string
	data map[string]any
}

func (f *fakeEmail) Send(ctx context.Context, to []string, subject, body string) error { return nil }

func (f *fakeEmail) SendTemplate(ctx context.Context, to []string, name string, data map[string]any) error {
	f.to = to
	f.data = data
	return nil
}

func TestEmailLooksUpMemberAddress(t *testing.T) {
	provider := &fakeEmail{}
	sink := NewEmail(provider, fakeMembers{member: &memberdomain.Member{ID: 5, DisplayName: "Kim", Email: "kim@shop.test"}})

	err := sink.Deliver(context.Background(), domain.Message{MemberID: 5, Title: "Payment failed", Content: "declined"})
	require.NoError(t, err)
	assert.Equal(t, []string{"kim@shop.test"}, provider.to)
	assert.Equal(t, "Kim", provider.data["member_name"])

	err = NewEmail(provider, fakeMembers{}).Deliver(context.Background(), domain.Message{MemberID: 9})
	require.ErrorIs(t, err, memberdomain.ErrMemberNotFound)

	err = NewEmail(provider, fakeMembers{member: &memberdomain.Member{ID: 6}}).Deliver(context.Background(), domain.Message{MemberID: 6})
	require.ErrorIs(t, err, ErrMemberHasNoEmail)
}

type fakeSlack struct{ text string }

func (f *fakeSlack) PostMessage(ctx context.Context, channelID, message string) error {
	f.text = message
	return nil
}

func TestSlackOnlyAcceptsFailures(t *testing.T) {
	provider := &fakeSlack{}
	sink := NewSlack(provider, "C1")

	assert.False(t, sink.Accepts(domain.TypePaymentSucceeded))
	assert.True(t, sink.Accepts(domain.TypePaymentFailed))
	assert.True(t, sink.Accepts(domain.TypeMembershipCancelled))

	require.NoError(t, sink.Deliver(context.Background(), domain.Message{MemberID: 3, Type: domain.TypePaymentFailed, Title: "Failed"}))
	assert.Contains(t, provider.text, "member 3")
}
