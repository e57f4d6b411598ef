package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xoslabs/workforce/internal/domain"
)

func TestHub_PublishDispatchesInOrder(t *testing.T) {
	h := NewHub()
	var got []string
	h.Subscribe(func(e domain.Event) { got = append(got, "first:"+e.Type) })
	h.Subscribe(func(e domain.Event) { got = append(got, "second:"+e.Type) })

	require.NoError(t, h.Publish(context.Background(), domain.EventActionApproved, map[string]any{"actionId": "a-1"}))

	assert.Equal(t, []string{"first:action_approved", "second:action_approved"}, got)
}

func TestHub_Events(t *testing.T) {
	h := NewHub()
	ctx := context.Background()
	require.NoError(t, h.Publish(ctx, domain.EventActionCreated, nil))
	require.NoError(t, h.Publish(ctx, domain.EventActionApproved, map[string]any{"actionId": "a-1"}))
	require.NoError(t, h.Publish(ctx, domain.EventActionCreated, nil))

	assert.Len(t, h.Events(""), 3)
	approved := h.Events(domain.EventActionApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, "a-1", approved[0].Payload["actionId"])
	assert.NotEmpty(t, approved[0].ID)
}

func TestHub_SubscriberMayPublish(t *testing.T) {
	h := NewHub()
	h.Subscribe(func(e domain.Event) {
		if e.Type == domain.EventActionCompleted {
			_ = h.Publish(context.Background(), domain.EventQuoteCreated, nil)
		}
	})

	require.NoError(t, h.Publish(context.Background(), domain.EventActionCompleted, nil))
	assert.Len(t, h.Events(domain.EventQuoteCreated), 1)
}

func TestDecodeEvent(t *testing.T) {
	e, err := decodeEvent(`{"id":"6f1c2a4e-8d3b-4b8e-9a57-1f2e3d4c5b6a","type":"action_approved","payload":{"actionId":"a-1"},"createdAt":"2026-05-10T06:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.EventActionApproved, e.Type)
	assert.Equal(t, "a-1", e.Payload["actionId"])

	_, err = decodeEvent("")
	assert.Error(t, err)
	_, err = decodeEvent(`{"payload":{}}`)
	assert.Error(t, err)
	_, err = decodeEvent(`not json`)
	assert.Error(t, err)
}

func TestHub_ListNewestFirst(t *testing.T) {
	h := NewHub()
	ctx := context.Background()
	for _, typ := range []string{"a", "b", "a", "a"} {
		require.NoError(t, h.Publish(ctx, typ, nil))
	}

	all, err := h.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	latest, err := h.List(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, all[0].ID, latest[0].ID)
}
