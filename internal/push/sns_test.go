package push

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"
)

type fakeSNS struct {
	err   error
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestMobileValidEndpoint(t *testing.T) {
	m := NewMobileSender(&fakeSNS{})

	assert.True(t, m.ValidEndpoint(Subscription{Endpoint: "arn:aws:sns:eu-west-1:123:endpoint/GCM/app/abc"}))
	assert.False(t, m.ValidEndpoint(Subscription{Endpoint: "https://push.example/sub"}))
	assert.False(t, m.ValidEndpoint(Subscription{Endpoint: ""}))
}

func TestMobileSendTargetsEndpoint(t *testing.T) {
	client := &fakeSNS{}
	m := NewMobileSender(client)

	err := m.Send(context.Background(), mobileSub("u1", "arn:aws:sns:ep1"), "Title", "Body", map[string]string{"event_id": "e1"})

	assert.NoError(t, err)
	assert.Equal(t, "arn:aws:sns:ep1", *client.input.TargetArn)
	assert.Contains(t, *client.input.Message, `"title":"Title"`)
	assert.Contains(t, *client.input.Message, `"event_id":"e1"`)
}

func TestMobileSendClassifiesPermanentFailures(t *testing.T) {
	permanent := []error{
		&types.EndpointDisabledException{},
		&types.InvalidParameterException{},
		&types.NotFoundException{},
	}
	for _, cause := range permanent {
		m := NewMobileSender(&fakeSNS{err: cause})
		err := m.Send(context.Background(), mobileSub("u1", "arn:aws:sns:ep1"), "t", "b", nil)
		assert.ErrorIs(t, err, ErrEndpointGone)
	}
}

func TestMobileSendKeepsTransientFailuresRetryable(t *testing.T) {
	m := NewMobileSender(&fakeSNS{err: errors.New("throttled")})

	err := m.Send(context.Background(), mobileSub("u1", "arn:aws:sns:ep1"), "t", "b", nil)

	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrEndpointGone))
}
