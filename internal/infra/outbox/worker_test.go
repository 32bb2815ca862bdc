package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appoutbox "venuehire/internal/app/outbox"
)

type storeMock struct{ mock.Mock }

func (m *storeMock) Claim(ctx context.Context, workerID string, now time.Time) (*Pending, error) {
	args := m.Called(ctx, workerID, now)
	p, _ := args.Get(0).(*Pending)
	return p, args.Error(1)
}

func (m *storeMock) MarkSent(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *storeMock) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return m.Called(ctx, id, next, errMsg).Error(0)
}

type producerMock struct{ mock.Mock }

func (m *producerMock) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	return m.Called(ctx, topic, key, payload, headers).Error(0)
}

var fixedNow = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

func pending(attempts int) *Pending {
	return &Pending{
		EventRecord: appoutbox.EventRecord{
			ID:          "evt-1",
			Name:        "booking.requested",
			Payload:     []byte(`{"booking_id":"b1"}`),
			OccurredAt:  fixedNow,
			AggregateID: "b1",
			Headers:     map[string]string{"traceparent": "00-abc"},
		},
		Attempts: attempts,
	}
}

func TestWorkerPublishesAndMarksSent(t *testing.T) {
	ctx := context.Background()
	store := &storeMock{}
	producer := &producerMock{}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "dev.", ID: "w1", Clock: func() time.Time { return fixedNow }}

	store.On("Claim", ctx, "w1", fixedNow).Return(pending(0), nil).Once()
	store.On("Claim", ctx, "w1", fixedNow).Return(nil, nil).Once()
	producer.On("Publish", ctx, "dev.booking.events.v1", "b1", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("MarkSent", ctx, "evt-1", fixedNow).Return(nil).Once()

	require.NoError(t, w.drain(ctx))
	store.AssertExpectations(t)
	producer.AssertExpectations(t)

	payload := producer.Calls[0].Arguments.Get(3).([]byte)
	var evt map[string]any
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, "booking.requested.v1", evt["type"])
	assert.Equal(t, "00-abc", evt["traceparent"])
	assert.Equal(t, map[string]any{"booking_id": "b1"}, evt["data"])
}

func TestWorkerReschedulesFailures(t *testing.T) {
	ctx := context.Background()
	store := &storeMock{}
	producer := &producerMock{}
	w := &Worker{
		Store:    store,
		Producer: producer,
		ID:       "w1",
		Backoff:  []time.Duration{time.Second, time.Minute},
		Clock:    func() time.Time { return fixedNow },
	}

	store.On("Claim", ctx, "w1", fixedNow).Return(pending(5), nil).Once()
	store.On("Claim", ctx, "w1", fixedNow).Return(nil, nil).Once()
	producer.On("Publish", ctx, "booking.events.v1", "b1", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	store.On("MarkFailed", ctx, "evt-1", fixedNow.Add(time.Minute), "broker down").Return(nil).Once()

	require.NoError(t, w.drain(ctx))
	store.AssertExpectations(t)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	assert.ErrorIs(t, (&Worker{}).Run(context.Background()), ErrWorkerNotConfigured)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "listing.events.v1", Topic("", "listing.pricing_updated"))
	assert.Equal(t, "p.misc.events.v1", Topic("p.", "misc"))
}

func TestDirectPublisher(t *testing.T) {
	ctx := context.Background()
	producer := &producerMock{}
	producer.On("Publish", ctx, "booking.events.v1", "b1", mock.Anything, mock.MatchedBy(func(h map[string]string) bool {
		return h["content-type"] == "application/cloudevents+json" && h["ce-id"] == "evt-1"
	})).Return(nil).Once()

	require.NoError(t, DirectPublisher{Producer: producer}.Publish(ctx, pending(0).EventRecord))
	producer.AssertExpectations(t)

	assert.ErrorIs(t, DirectPublisher{}.Publish(ctx, pending(0).EventRecord), ErrWorkerNotConfigured)
}
