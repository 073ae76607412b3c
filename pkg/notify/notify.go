// Copyright 2026 The invsync Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/header"
	"github.com/netops-tools/invsync/pkg/snapshot"
)

// Message headers set on update events.
const (
	HeaderVersion = "Invsync-Version"
	HeaderDigest  = "Invsync-Digest"
)

// Conn is the part of *nats.Conn used by this package.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Refresher is the part of *snapshot.Refresher the listener drives.
type Refresher interface {
	Refresh(ctx context.Context, trigger snapshot.Trigger) (*snapshot.Snapshot, error)
	Trigger(trigger snapshot.Trigger)
}

// Connect dials the NATS server at url. The connection keeps reconnecting
// for the life of the process.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(defaults.NATSConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(defaults.NATSReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to connect to NATS", err,
			map[string]any{"url": url})
	}
	return nc, nil
}

// RefreshReply answers a refresh request.
type RefreshReply struct {
	Version uint64           `json:"version,omitempty"`
	Digest  string           `json:"digest,omitempty"`
	Hosts   int              `json:"hosts"`
	Groups  int              `json:"groups"`
	Error   string           `json:"error,omitempty"`
	Code    errors.ErrorCode `json:"code,omitempty"`
}

// Listener turns messages on the refresh subject into refreshes.
type Listener struct {
	conn      Conn
	subject   string
	refresher Refresher
	timeout   time.Duration

	mu  sync.Mutex
	sub *nats.Subscription
	wg  sync.WaitGroup
}

// NewListener returns a listener for subject. Requests wait at most
// defaults.RefreshHandlerTimeout for the refresh.
func NewListener(conn Conn, subject string, r Refresher) *Listener {
	return &Listener{
		conn:      conn,
		subject:   subject,
		refresher: r,
		timeout:   defaults.RefreshHandlerTimeout,
	}
}

// Start subscribes to the refresh subject.
func (l *Listener) Start() error {
	sub, err := l.conn.Subscribe(l.subject, l.handle)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to subscribe", err,
			map[string]any{"subject": l.subject})
	}
	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()
	slog.Info("listening for refresh requests", "subject", l.subject)
	return nil
}

// Close unsubscribes and waits for pending replies.
func (l *Listener) Close() error {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	l.wg.Wait()
	return err
}

func (l *Listener) handle(msg *nats.Msg) {
	if msg.Reply == "" {
		slog.Debug("refresh requested over NATS", "subject", msg.Subject)
		l.refresher.Trigger(snapshot.TriggerNATS)
		return
	}

	// Requests are answered off the delivery goroutine so one slow refresh
	// does not hold up the subscription.
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.reply(msg.Reply)
	}()
}

func (l *Listener) reply(subject string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	var rep RefreshReply
	s, err := l.refresher.Refresh(ctx, snapshot.TriggerNATS)
	if err != nil {
		rep.Error = err.Error()
		rep.Code = errors.CodeOf(err)
	} else {
		rep.Version = s.Version
		rep.Digest = s.Digest.String()
		rep.Hosts = len(s.Hosts)
		rep.Groups = len(s.Groups)
	}

	data, err := json.Marshal(rep)
	if err != nil {
		slog.Error("failed to encode refresh reply", "error", err)
		return
	}
	if err := l.conn.PublishMsg(&nats.Msg{Subject: subject, Data: data}); err != nil {
		slog.Warn("failed to answer refresh request", "reply", subject, "error", err)
	}
}

// UpdateEvent announces a newly published snapshot.
type UpdateEvent struct {
	header.Header `yaml:",inline"`

	Version   uint64    `json:"version" yaml:"version"`
	Digest    string    `json:"digest" yaml:"digest"`
	Hosts     int       `json:"hosts" yaml:"hosts"`
	Groups    int       `json:"groups" yaml:"groups"`
	Skipped   int       `json:"skipped" yaml:"skipped"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// NewUpdateEvent describes s.
func NewUpdateEvent(s *snapshot.Snapshot, toolVersion string) *UpdateEvent {
	ev := &UpdateEvent{
		Version:   s.Version,
		Digest:    s.Digest.String(),
		Hosts:     len(s.Hosts),
		Groups:    len(s.Groups),
		Skipped:   len(s.Warnings),
		CreatedAt: s.CreatedAt,
	}
	ev.InitAt(header.KindInventoryUpdate, toolVersion, s.CreatedAt)
	ev.Metadata[header.MetaDigest] = ev.Digest
	return ev
}

// Publisher sends update events.
type Publisher struct {
	conn        Conn
	subject     string
	toolVersion string
}

// NewPublisher returns a publisher for subject.
func NewPublisher(conn Conn, subject, toolVersion string) *Publisher {
	return &Publisher{conn: conn, subject: subject, toolVersion: toolVersion}
}

// Publish announces s. The message id lets JetStream streams drop
// duplicates.
func (p *Publisher) Publish(s *snapshot.Snapshot) error {
	data, err := json.Marshal(NewUpdateEvent(s, p.toolVersion))
	if err != nil {
		return fmt.Errorf("failed to encode update event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(HeaderVersion, strconv.FormatUint(s.Version, 10))
	msg.Header.Set(HeaderDigest, s.Digest.String())
	msg.Header.Set(nats.MsgIdHdr, s.Digest.Short()+"-"+strconv.FormatUint(s.Version, 10))

	if err := p.conn.PublishMsg(msg); err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to publish update event", err,
			map[string]any{"subject": p.subject})
	}
	slog.Debug("update event published", "subject", p.subject, "version", s.Version)
	return nil
}

// Hook adapts Publish to a refresher publish hook.
func (p *Publisher) Hook() snapshot.PublishHook {
	return func(_ context.Context, s *snapshot.Snapshot) {
		if err := p.Publish(s); err != nil {
			slog.Warn("update event not sent", "version", s.Version, "error", err)
		}
	}
}
