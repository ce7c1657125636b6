package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/invoicecore/shrike/internal/domain"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	sub, err := b.Subscribe(ctx, "t1", domain.TopicInvoiceReceived, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, "t1", domain.TopicInvoiceReceived, []byte(`{"x":1}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic != domain.TopicInvoiceReceived || msg.TenantID != "t1" {
			t.Errorf("message routing wrong: %+v", msg)
		}
		if string(msg.Payload) != `{"x":1}` {
			t.Errorf("payload = %s", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestTenantAndTopicIsolation(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	var count atomic.Int64
	_, err := b.Subscribe(ctx, "t1", domain.TopicInvoiceReceived, func(ctx context.Context, msg *domain.Message) error {
		count.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Neither another tenant nor another topic reaches the subscriber.
	b.Publish(ctx, "t2", domain.TopicInvoiceReceived, nil)
	b.Publish(ctx, "t1", domain.TopicValidationCompleted, nil)
	b.Publish(ctx, "t1", domain.TopicInvoiceReceived, nil)

	time.Sleep(100 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("handler invoked %d times, want 1", got)
	}
}

func TestClosedBusRejectsPublish(t *testing.T) {
	b := NewChannelBus(10)
	b.Close()

	if err := b.Publish(context.Background(), "t1", domain.TopicInvoiceReceived, nil); err == nil {
		t.Error("publish on a closed bus should fail")
	}
	if _, err := b.Subscribe(context.Background(), "t1", domain.TopicInvoiceReceived, nil); err == nil {
		t.Error("subscribe on a closed bus should fail")
	}
}
