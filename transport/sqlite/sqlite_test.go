package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/transport"
	"github.com/drblury/resourcewatch/transport/transporttest"
)

func openMemory(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(context.Background(), Config{FilePath: ":memory:", PollInterval: 5 * time.Millisecond}, watermill.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func batchMsg(uuid, target, payload string) *message.Message {
	msg := message.NewMessage(uuid, []byte(payload))
	msg.Metadata.Set(targetIDMetadata, target)
	msg.Metadata.Set("ce_type", "console-message")
	return msg
}

func next(t *testing.T, msgs <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg, ok := <-msgs:
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for archived message")
		return nil
	}
}

func TestRegisteredOnImport(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
	caps := transport.GetCapabilities(TransportName)
	assert.True(t, caps.Replayable)
	assert.True(t, caps.Durable)
}

func TestBuild_FileArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.db")
	tr, err := Build(context.Background(), &transporttest.Config{SQLiteFile: path}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Same(t, tr.Publisher, tr.Subscriber)

	require.NoError(t, tr.Publisher.Publish("console", batchMsg("a", "t1", "one")))
	require.NoError(t, tr.Close())

	reopened, err := Open(context.Background(), Config{FilePath: path}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.Replay(context.Background(), "console")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "one", string(msgs[0].Payload))
}

func TestPublish_ReplayInOrder(t *testing.T) {
	a := openMemory(t)

	require.NoError(t, a.Publish("console", batchMsg("a", "t1", "1"), batchMsg("b", "t1", "2")))
	require.NoError(t, a.Publish("other", batchMsg("c", "t2", "x")))
	require.NoError(t, a.Publish("console", batchMsg("d", "t2", "3")))

	msgs, err := a.Replay(context.Background(), "console")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"a", "b", "d"}, []string{msgs[0].UUID, msgs[1].UUID, msgs[2].UUID})
	assert.Equal(t, "console-message", msgs[0].Metadata.Get("ce_type"))
	assert.Equal(t, "t1", msgs[0].Metadata.Get(targetIDMetadata))
}

func TestReplay_PagesPastFetchSize(t *testing.T) {
	a, err := Open(context.Background(), Config{FilePath: ":memory:", FetchSize: 2}, nil)
	require.NoError(t, err)
	defer a.Close()

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, a.Publish("console", batchMsg(id, "t", id)))
	}
	msgs, err := a.Replay(context.Background(), "console")
	require.NoError(t, err)
	assert.Len(t, msgs, 5)
}

func TestPublish_DuplicateUUIDRejected(t *testing.T) {
	a := openMemory(t)
	require.NoError(t, a.Publish("console", batchMsg("a", "t", "1")))
	assert.Error(t, a.Publish("console", batchMsg("a", "t", "2")))

	msgs, err := a.Replay(context.Background(), "console")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSubscribe_ReplaysThenFollows(t *testing.T) {
	a := openMemory(t)
	require.NoError(t, a.Publish("console", batchMsg("history", "t1", "h")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := a.Subscribe(ctx, "console")
	require.NoError(t, err)

	msg := next(t, msgs)
	assert.Equal(t, "history", msg.UUID)
	msg.Ack()

	require.NoError(t, a.Publish("console", batchMsg("live", "t1", "l")))
	msg = next(t, msgs)
	assert.Equal(t, "live", msg.UUID)
	msg.Ack()
}

func TestSubscribe_NackRedelivers(t *testing.T) {
	a := openMemory(t)
	require.NoError(t, a.Publish("console", batchMsg("a", "t1", "1")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := a.Subscribe(ctx, "console")
	require.NoError(t, err)

	msg := next(t, msgs)
	msg.Nack()

	again := next(t, msgs)
	assert.Equal(t, "a", again.UUID)
	again.Ack()
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	a := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := a.Subscribe(ctx, "console")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestCountAndPrune(t *testing.T) {
	a := openMemory(t)
	require.NoError(t, a.Publish("console", batchMsg("a", "t1", "1"), batchMsg("b", "t1", "2")))
	require.NoError(t, a.Publish("console", batchMsg("c", "t2", "3")))

	n, err := a.Count(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	removed, err := a.Prune(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	msgs, err := a.Replay(context.Background(), "console")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClose(t *testing.T) {
	a, err := Open(context.Background(), Config{FilePath: ":memory:"}, nil)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Publish("console", batchMsg("a", "t", "1")), ErrClosed)
	_, err = a.Subscribe(context.Background(), "console")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = a.Replay(context.Background(), "console")
	assert.ErrorIs(t, err, ErrClosed)
}
