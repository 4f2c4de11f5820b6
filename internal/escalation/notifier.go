// internal/escalation/notifier.go
package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclient "advisor-engine/internal/common/aws"
	"advisor-engine/internal/common/errors"
)

const (
	ReasonStuck         = "stuck"
	ReasonAIUnavailable = "ai_unavailable"
)

// Event asks a human to follow up with a profile.
type Event struct {
	TurnID     string    `json:"turnId"`
	ProfileID  string    `json:"profileId"`
	Screen     string    `json:"screen"`
	Reason     string    `json:"reason"`
	Intent     string    `json:"intent"`
	Input      string    `json:"input"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// SNSNotifier publishes events to one topic.
type SNSNotifier struct {
	client   awsclient.SNSAPI
	topicARN string
}

func NewSNSNotifier(client awsclient.SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (n *SNSNotifier) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.NewEscalationPublishFailedError(fmt.Errorf("encode event: %w", err))
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("Advisor escalation: " + ev.Reason),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"reason": {DataType: aws.String("String"), StringValue: aws.String(ev.Reason)},
			"screen": {DataType: aws.String("String"), StringValue: aws.String(ev.Screen)},
		},
	})
	if err != nil {
		return errors.NewEscalationPublishFailedError(err).WithMetadata("profileId", ev.ProfileID)
	}
	return nil
}
