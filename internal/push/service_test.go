package push

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSubStore struct {
	subs     []Subscription
	disabled map[string]bool
	upserts  []*Subscription
	loads    int
}

func newFakeSubStore(subs ...Subscription) *fakeSubStore {
	return &fakeSubStore{subs: subs, disabled: map[string]bool{}}
}

func (f *fakeSubStore) Upsert(_ context.Context, sub *Subscription) error {
	f.upserts = append(f.upserts, sub)
	for i := range f.subs {
		if f.subs[i].Endpoint == sub.Endpoint {
			f.subs[i] = *sub
			f.disabled[sub.Endpoint] = false
			return nil
		}
	}
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeSubStore) ActiveByUserIDs(_ context.Context, userIDs []string) ([]Subscription, error) {
	f.loads++
	wanted := map[string]bool{}
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []Subscription
	for _, sub := range f.subs {
		if wanted[sub.UserID] && !f.disabled[sub.Endpoint] {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeSubStore) Disable(_ context.Context, endpoint string) error {
	f.disabled[endpoint] = true
	return nil
}

// fakeChannelSender replays a scripted error sequence per endpoint.
type fakeChannelSender struct {
	validFunc func(Subscription) bool
	errs      map[string][]error
	calls     []string
}

func (f *fakeChannelSender) ValidEndpoint(sub Subscription) bool {
	if f.validFunc != nil {
		return f.validFunc(sub)
	}
	return true
}

func (f *fakeChannelSender) Send(_ context.Context, sub Subscription, _, _ string, _ map[string]string) error {
	f.calls = append(f.calls, sub.Endpoint)
	queue := f.errs[sub.Endpoint]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	f.errs[sub.Endpoint] = queue[1:]
	return err
}

func newTestService(store *fakeSubStore, mobile, browser Sender) *Service {
	return &Service{store: store, mobile: mobile, browser: browser, logger: zap.NewNop()}
}

func mobileSub(userID, arn string) Subscription {
	return Subscription{UserID: userID, SchoolID: "S1", Channel: ChannelMobile, Endpoint: arn}
}

func browserSub(userID, endpoint string) Subscription {
	return Subscription{
		UserID: userID, SchoolID: "S1", Channel: ChannelBrowser,
		Endpoint: endpoint, P256dh: "key", Auth: "secret",
	}
}

// ==========================
// RegisterEndpoint
// ==========================

func TestRegisterEndpointRejectsIncomplete(t *testing.T) {
	store := newFakeSubStore()
	svc := newTestService(store, &fakeChannelSender{}, &fakeChannelSender{})

	cases := []Subscription{
		{SchoolID: "S1", Channel: ChannelMobile, Endpoint: "arn:aws:sns:x"},
		{UserID: "u1", Channel: ChannelMobile, Endpoint: "arn:aws:sns:x"},
		{UserID: "u1", SchoolID: "S1", Channel: ChannelMobile},
		{UserID: "u1", SchoolID: "S1", Channel: "sms", Endpoint: "x"},
	}
	for _, sub := range cases {
		err := svc.RegisterEndpoint(context.Background(), &sub)
		assert.ErrorIs(t, err, ErrInvalidSubscription)
	}
	assert.Empty(t, store.upserts)
}

func TestRegisterEndpointValidatesPerChannel(t *testing.T) {
	store := newFakeSubStore()
	mobile := &fakeChannelSender{validFunc: func(s Subscription) bool { return false }}
	svc := newTestService(store, mobile, &fakeChannelSender{})

	sub := mobileSub("u1", "not-an-arn")
	err := svc.RegisterEndpoint(context.Background(), &sub)

	assert.ErrorIs(t, err, ErrInvalidSubscription)
}

func TestRegisterEndpointReenablesExisting(t *testing.T) {
	store := newFakeSubStore(mobileSub("u1", "arn:aws:sns:ep1"))
	store.disabled["arn:aws:sns:ep1"] = true
	svc := newTestService(store, &fakeChannelSender{}, &fakeChannelSender{})

	sub := mobileSub("u1", "arn:aws:sns:ep1")
	err := svc.RegisterEndpoint(context.Background(), &sub)

	assert.NoError(t, err)
	assert.False(t, store.disabled["arn:aws:sns:ep1"])
	assert.Len(t, store.subs, 1)
}

// ==========================
// SendBatch
// ==========================

func TestSendBatchPartitionsByChannel(t *testing.T) {
	store := newFakeSubStore(
		mobileSub("u1", "arn:aws:sns:ep1"),
		browserSub("u1", "https://push.example/sub1"),
	)
	mobile := &fakeChannelSender{errs: map[string][]error{}}
	browser := &fakeChannelSender{errs: map[string][]error{}}
	svc := newTestService(store, mobile, browser)

	report, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)

	assert.NoError(t, err)
	assert.Equal(t, Report{Sent: 2}, report)
	assert.Equal(t, []string{"arn:aws:sns:ep1"}, mobile.calls)
	assert.Equal(t, []string{"https://push.example/sub1"}, browser.calls)
}

func TestSendBatchDisablesGoneEndpointWithoutRetry(t *testing.T) {
	store := newFakeSubStore(mobileSub("u1", "arn:aws:sns:gone"))
	mobile := &fakeChannelSender{errs: map[string][]error{
		"arn:aws:sns:gone": {ErrEndpointGone},
	}}
	svc := newTestService(store, mobile, &fakeChannelSender{})

	report, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)

	assert.NoError(t, err)
	assert.Equal(t, Report{Disabled: 1}, report)
	assert.Len(t, mobile.calls, 1)
	assert.True(t, store.disabled["arn:aws:sns:gone"])
}

func TestSendBatchSkipsPrunedEndpointNextTime(t *testing.T) {
	store := newFakeSubStore(mobileSub("u1", "arn:aws:sns:gone"))
	mobile := &fakeChannelSender{errs: map[string][]error{
		"arn:aws:sns:gone": {ErrEndpointGone},
	}}
	svc := newTestService(store, mobile, &fakeChannelSender{})

	_, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)
	assert.NoError(t, err)

	report, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)
	assert.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Len(t, mobile.calls, 1)
}

func TestSendBatchRetriesTransientOnce(t *testing.T) {
	store := newFakeSubStore(browserSub("u1", "https://push.example/flaky"))
	browser := &fakeChannelSender{errs: map[string][]error{
		"https://push.example/flaky": {errors.New("timeout")},
	}}
	svc := newTestService(store, &fakeChannelSender{}, browser)

	report, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)

	assert.NoError(t, err)
	assert.Equal(t, Report{Sent: 1}, report)
	assert.Len(t, browser.calls, 2)
}

func TestSendBatchGivesUpAfterSecondFailure(t *testing.T) {
	store := newFakeSubStore(browserSub("u1", "https://push.example/down"))
	browser := &fakeChannelSender{errs: map[string][]error{
		"https://push.example/down": {errors.New("timeout"), errors.New("timeout")},
	}}
	svc := newTestService(store, &fakeChannelSender{}, browser)

	report, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)

	assert.NoError(t, err)
	assert.Equal(t, Report{Failed: 1}, report)
	assert.Len(t, browser.calls, 2)
}

func TestSendBatchDisablesWhenRetryReportsGone(t *testing.T) {
	store := newFakeSubStore(browserSub("u1", "https://push.example/stale"))
	browser := &fakeChannelSender{errs: map[string][]error{
		"https://push.example/stale": {errors.New("timeout"), ErrEndpointGone},
	}}
	svc := newTestService(store, &fakeChannelSender{}, browser)

	report, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)

	assert.NoError(t, err)
	assert.Equal(t, Report{Disabled: 1}, report)
	assert.True(t, store.disabled["https://push.example/stale"])
}

func TestSendBatchDropsMalformedRows(t *testing.T) {
	store := newFakeSubStore(mobileSub("u1", "garbage"))
	mobile := &fakeChannelSender{validFunc: func(s Subscription) bool { return false }}
	svc := newTestService(store, mobile, &fakeChannelSender{})

	report, err := svc.SendBatch(context.Background(), []string{"u1"}, "t", "b", nil)

	assert.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Empty(t, mobile.calls)
}

func TestSendBatchEmptyRecipientsSkipsStore(t *testing.T) {
	store := newFakeSubStore()
	svc := newTestService(store, &fakeChannelSender{}, &fakeChannelSender{})

	report, err := svc.SendBatch(context.Background(), nil, "t", "b", nil)

	assert.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Zero(t, store.loads)
}
