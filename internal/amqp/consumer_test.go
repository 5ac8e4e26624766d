package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

type ackRecord struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, ackRecord{tag: tag, ack: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestConsumeLoop_AckNackRequeue(t *testing.T) {
	acker := &fakeAcknowledger{}
	msgs := make(chan amqp091.Delivery, 3)

	good, err := NewExpenseChangedMessage(core.ChangeEvent{Op: core.ChangeUpdated, ID: 1}).ToJSON()
	require.NoError(t, err)
	failing, err := NewExpenseChangedMessage(core.ChangeEvent{Op: core.ChangeDeleted, ID: 2}).ToJSON()
	require.NoError(t, err)

	msgs <- amqp091.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: good}
	msgs <- amqp091.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte("not json")}
	msgs <- amqp091.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: failing}
	close(msgs)

	var handled []int64
	handler := func(_ context.Context, msg *ExpenseChangedMessage) error {
		handled = append(handled, msg.ID)
		if msg.ID == 2 {
			return errors.New("sheets unavailable")
		}
		return nil
	}

	err = consumeLoop(context.Background(), msgs, handler, applog.Discard())
	assert.ErrorIs(t, err, errChannelClosed)
	assert.Equal(t, []int64{1, 2}, handled)
	assert.Equal(t, []ackRecord{
		{tag: 1, ack: true},
		{tag: 2, requeue: false},
		{tag: 3, requeue: true},
	}, acker.records)
}

func TestConsumeLoop_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp091.Delivery)

	done := make(chan error, 1)
	go func() {
		done <- consumeLoop(ctx, msgs, func(context.Context, *ExpenseChangedMessage) error { return nil }, applog.Discard())
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumeLoop did not stop")
	}
}
