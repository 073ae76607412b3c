package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/grouping"
	"github.com/netops-tools/invsync/pkg/header"
	"github.com/netops-tools/invsync/pkg/inventory"
	"github.com/netops-tools/invsync/pkg/snapshot"
)

type fakeConn struct {
	mu        sync.Mutex
	published []*nats.Msg
	handlers  map[string]nats.MsgHandler
	err       error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, m)
	return nil
}

func (f *fakeConn) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.handlers == nil {
		f.handlers = make(map[string]nats.MsgHandler)
	}
	f.handlers[subject] = cb
	return nil, nil
}

func (f *fakeConn) deliver(t *testing.T, msg *nats.Msg) {
	t.Helper()
	f.mu.Lock()
	cb, ok := f.handlers[msg.Subject]
	f.mu.Unlock()
	require.True(t, ok, "no subscription for %s", msg.Subject)
	cb(msg)
}

func (f *fakeConn) messages() []*nats.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*nats.Msg(nil), f.published...)
}

type fakeRefresher struct {
	mu       sync.Mutex
	triggers []snapshot.Trigger
	snap     *snapshot.Snapshot
	err      error
}

func (f *fakeRefresher) Refresh(_ context.Context, trigger snapshot.Trigger) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return f.snap, f.err
}

func (f *fakeRefresher) Trigger(trigger snapshot.Trigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
}

func testSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	hosts := []inventory.Host{{Name: "R1", Platform: "ios"}, {Name: "SW1", Platform: "ios"}}
	s, err := snapshot.Build(hosts, nil, grouping.NewEngine(nil, nil), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	pub, err := snapshot.NewCache().Publish(s)
	require.NoError(t, err)
	return pub
}

func TestListenerTriggersOnPlainMessage(t *testing.T) {
	conn := &fakeConn{}
	r := &fakeRefresher{}
	l := NewListener(conn, "invsync.refresh", r)
	require.NoError(t, l.Start())

	conn.deliver(t, &nats.Msg{Subject: "invsync.refresh"})
	require.NoError(t, l.Close())

	assert.Equal(t, []snapshot.Trigger{snapshot.TriggerNATS}, r.triggers)
	assert.Empty(t, conn.messages())
}

func TestListenerRepliesToRequests(t *testing.T) {
	conn := &fakeConn{}
	s := testSnapshot(t)
	l := NewListener(conn, "invsync.refresh", &fakeRefresher{snap: s})
	require.NoError(t, l.Start())

	conn.deliver(t, &nats.Msg{Subject: "invsync.refresh", Reply: "_INBOX.1"})
	require.NoError(t, l.Close())

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "_INBOX.1", msgs[0].Subject)

	var rep RefreshReply
	require.NoError(t, json.Unmarshal(msgs[0].Data, &rep))
	assert.Equal(t, uint64(1), rep.Version)
	assert.Equal(t, s.Digest.String(), rep.Digest)
	assert.Equal(t, 2, rep.Hosts)
	assert.Empty(t, rep.Error)
}

func TestListenerRepliesWithError(t *testing.T) {
	conn := &fakeConn{}
	r := &fakeRefresher{err: errors.New(errors.ErrCodeUnauthorized, "source rejected the token")}
	l := NewListener(conn, "invsync.refresh", r)
	require.NoError(t, l.Start())

	conn.deliver(t, &nats.Msg{Subject: "invsync.refresh", Reply: "_INBOX.2"})
	require.NoError(t, l.Close())

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	var rep RefreshReply
	require.NoError(t, json.Unmarshal(msgs[0].Data, &rep))
	assert.Equal(t, errors.ErrCodeUnauthorized, rep.Code)
	assert.Contains(t, rep.Error, "token")
}

func TestListenerStartFails(t *testing.T) {
	conn := &fakeConn{err: nats.ErrConnectionClosed}
	err := NewListener(conn, "invsync.refresh", &fakeRefresher{}).Start()
	assert.True(t, errors.Is(err, errors.ErrCodeUnavailable))
}

func TestPublisherSendsUpdateEvent(t *testing.T) {
	conn := &fakeConn{}
	s := testSnapshot(t)
	p := NewPublisher(conn, "invsync.updated", "v1.2.3")

	p.Hook()(context.Background(), s)

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, "invsync.updated", msg.Subject)
	assert.Equal(t, "1", msg.Header.Get(HeaderVersion))
	assert.Equal(t, s.Digest.String(), msg.Header.Get(HeaderDigest))
	assert.NotEmpty(t, msg.Header.Get(nats.MsgIdHdr))

	var ev UpdateEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, header.KindInventoryUpdate, ev.Kind)
	assert.Equal(t, header.APIVersion, ev.APIVersion)
	assert.Equal(t, "v1.2.3", ev.Get(header.MetaVersion))
	assert.Equal(t, s.Digest.String(), ev.Get(header.MetaDigest))
	assert.Equal(t, uint64(1), ev.Version)
	assert.Equal(t, 2, ev.Hosts)
	assert.True(t, s.CreatedAt.Equal(ev.CreatedAt))
}

func TestPublisherError(t *testing.T) {
	conn := &fakeConn{err: nats.ErrConnectionClosed}
	err := NewPublisher(conn, "invsync.updated", "").Publish(testSnapshot(t))
	assert.True(t, errors.Is(err, errors.ErrCodeUnavailable))
}
