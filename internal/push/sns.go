package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// ErrEndpointGone marks a permanent gateway failure: the remote endpoint no
// longer exists and the subscription should be disabled, not retried.
var ErrEndpointGone = errors.New("push endpoint gone")

// SNSAPI is the slice of the SNS client the mobile sender uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// MobileSender publishes to SNS platform endpoints (device tokens are
// exchanged for endpoint ARNs by the mobile apps at registration time).
type MobileSender struct {
	client SNSAPI
}

func NewMobileSender(client SNSAPI) *MobileSender {
	return &MobileSender{client: client}
}

type mobilePayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// ValidEndpoint reports whether the stored endpoint looks like a platform
// endpoint ARN. Malformed rows are dropped before any network call.
func (m *MobileSender) ValidEndpoint(sub Subscription) bool {
	return strings.HasPrefix(sub.Endpoint, "arn:aws:sns:")
}

func (m *MobileSender) Send(ctx context.Context, sub Subscription, title, body string, data map[string]string) error {
	message, err := json.Marshal(mobilePayload{Title: title, Body: body, Data: data})
	if err != nil {
		return fmt.Errorf("marshal mobile payload: %w", err)
	}

	_, err = m.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(sub.Endpoint),
		Message:   aws.String(string(message)),
	})
	if err != nil {
		var disabled *types.EndpointDisabledException
		var invalid *types.InvalidParameterException
		var notFound *types.NotFoundException
		if errors.As(err, &disabled) || errors.As(err, &invalid) || errors.As(err, &notFound) {
			return fmt.Errorf("%w: %s", ErrEndpointGone, err.Error())
		}
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
