package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/devent/internal/logger"
)

type recordingNotifier struct {
	changes []Change
	err     error
}

func (r *recordingNotifier) Notify(change Change) error {
	r.changes = append(r.changes, change)
	return r.err
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

var sampleChange = Change{
	Key:   "devent_events",
	Op:    OpSet,
	Count: 7,
	At:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logger.New(logger.LevelDebug, &buf))

	require.NoError(t, n.Notify(sampleChange))

	var entry logger.LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Storage changed", entry.Message)
	assert.Equal(t, "devent_events", entry.Fields["key"])
	assert.EqualValues(t, 7, entry.Fields["count"])
}

func TestMulti(t *testing.T) {
	first := &recordingNotifier{err: errors.New("broker down")}
	second := &recordingNotifier{}

	err := Multi{first, nil, second}.Notify(sampleChange)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, first.changes, 1)
	assert.Len(t, second.changes, 1, "later notifiers still run after a failure")
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Notify(sampleChange))
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "storage.devent_registrations", RoutingKey(Change{Key: "devent_registrations"}))
}

func TestMessage(t *testing.T) {
	msg, err := Message(sampleChange)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "set", msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded Change
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, sampleChange.Key, decoded.Key)
	assert.Equal(t, sampleChange.Count, decoded.Count)
	assert.True(t, sampleChange.At.Equal(decoded.At))
}

func TestAMQPNotifier_Notify(t *testing.T) {
	ch := &fakeChannel{}
	n := &AMQPNotifier{channel: ch}

	require.NoError(t, n.Notify(sampleChange))
	assert.Equal(t, ExchangeName, ch.exchange)
	assert.Equal(t, "storage.devent_events", ch.key)

	n.Close()
	assert.True(t, ch.closed)
}

func TestAMQPNotifier_PublishError(t *testing.T) {
	n := &AMQPNotifier{channel: &fakeChannel{err: errors.New("channel closed")}}

	err := n.Notify(sampleChange)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish change")
}
