package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func testMessage() Message {
	return Message{
		ID:     "msg-1",
		CaseID: "case-1",
		Recipients: []Recipient{
			{UserID: "adv-1", Role: "advocate"},
			{UserID: "client-1", Role: "client"},
		},
		Subject:  "Case status changed",
		Body:     "Case LP/0001/2026 moved to open",
		Data:     map[string]any{"new_status": "open"},
		QueuedAt: time.Now().UTC(),
	}
}

func TestQueueDispatcherEnqueues(t *testing.T) {
	mr, client := newTestRedis(t)
	dispatcher := NewQueueDispatcher(client, "caseflow:notifications")
	ctx := context.Background()

	if err := dispatcher.Dispatch(ctx, testMessage()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	payload, err := mr.Lpop("caseflow:notifications")
	if err != nil {
		t.Fatalf("queue pop: %v", err)
	}

	var got Message
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.ID != "msg-1" {
		t.Errorf("ID = %q, want msg-1", got.ID)
	}
	if len(got.Recipients) != 2 {
		t.Errorf("Recipients = %d, want 2", len(got.Recipients))
	}
	if got.Data["new_status"] != "open" {
		t.Errorf("Data[new_status] = %v, want open", got.Data["new_status"])
	}
}

func TestQueueDispatcherPreservesOrder(t *testing.T) {
	mr, client := newTestRedis(t)
	dispatcher := NewQueueDispatcher(client, "caseflow:notifications")
	ctx := context.Background()

	for _, id := range []string{"msg-1", "msg-2", "msg-3"} {
		msg := testMessage()
		msg.ID = id
		if err := dispatcher.Dispatch(ctx, msg); err != nil {
			t.Fatalf("Dispatch %s: %v", id, err)
		}
	}

	for _, want := range []string{"msg-1", "msg-2", "msg-3"} {
		payload, err := mr.Lpop("caseflow:notifications")
		if err != nil {
			t.Fatalf("queue pop: %v", err)
		}
		var got Message
		if err := json.Unmarshal([]byte(payload), &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if got.ID != want {
			t.Errorf("popped %q, want %q", got.ID, want)
		}
	}
}

func TestQueueDispatcherConnectionFailure(t *testing.T) {
	mr, client := newTestRedis(t)
	dispatcher := NewQueueDispatcher(client, "caseflow:notifications")

	mr.Close()

	if err := dispatcher.Dispatch(context.Background(), testMessage()); err == nil {
		t.Error("expected error after redis shutdown")
	}
}

func TestMemoryDispatcherCollects(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	ctx := context.Background()

	if err := dispatcher.Dispatch(ctx, testMessage()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msgs := dispatcher.Messages()
	if len(msgs) != 1 || msgs[0].ID != "msg-1" {
		t.Errorf("Messages() = %v, want one msg-1", msgs)
	}
}
