package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/soocke/weapon-watch/config"
	"github.com/soocke/weapon-watch/domain/detection"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingChannel struct {
	name   string
	prefix string
	err    error
	got    [][]string
}

func (c *recordingChannel) Name() string          { return c.name }
func (c *recordingChannel) Accepts(d string) bool { return strings.HasPrefix(d, c.prefix) }
func (c *recordingChannel) Send(_ context.Context, to []string) error {
	c.got = append(c.got, to)
	return c.err
}

type recordingPublisher struct {
	events []AlertEvent
	err    error
}

func (p *recordingPublisher) Name() string { return "bus" }
func (p *recordingPublisher) Publish(_ context.Context, ev AlertEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func TestMulti_RoutesByShape(t *testing.T) {
	mail := &recordingChannel{name: "email", prefix: "m:"}
	sms := &recordingChannel{name: "sms", prefix: "+"}
	m := NewMulti("alert", discardLogger, []Channel{mail, sms})

	err := m.Notify(context.Background(), []string{"m:a", "+1", "bogus", "m:b", "+2"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"m:a", "m:b"}}, mail.got)
	assert.Equal(t, [][]string{{"+1", "+2"}}, sms.got)
}

func TestMulti_JoinsErrorsAndAttemptsEveryChannel(t *testing.T) {
	errMail := errors.New("relay down")
	errBus := errors.New("broker down")
	mail := &recordingChannel{name: "email", prefix: "m:", err: errMail}
	sms := &recordingChannel{name: "sms", prefix: "+"}
	bus := &recordingPublisher{err: errBus}
	m := NewMulti("alert", discardLogger, []Channel{mail, sms}, bus)

	err := m.Notify(context.Background(), []string{"m:a", "+1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errMail)
	assert.ErrorIs(t, err, errBus)
	assert.Len(t, sms.got, 1)
	assert.Len(t, bus.events, 1)
}

func TestMulti_EventCarriesAlert(t *testing.T) {
	bus := &recordingPublisher{}
	m := NewMulti("Gun Detected!", discardLogger, nil, bus)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := detection.WithAlert(context.Background(), detection.Alert{
		SessionID: "s-1", Sequence: 5, Confidence: 0.8, At: at,
	})

	require.NoError(t, m.Notify(ctx, nil))
	require.Len(t, bus.events, 1)
	ev := bus.events[0]
	assert.Equal(t, "s-1", ev.SessionID)
	assert.EqualValues(t, 5, ev.Sequence)
	assert.InDelta(t, 0.8, ev.Confidence, 1e-9)
	assert.Equal(t, "Gun Detected!", ev.Message)
	assert.True(t, ev.At.Equal(at))
}

func TestEmail_SendsOneMessageToAll(t *testing.T) {
	e := NewEmail(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "bot@example.com", User: "bot", Password: "pw"}, "Gun Detected!")
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	e.sendMail = func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg, gotAuth = addr, to, string(msg), a
		return nil
	}

	require.NoError(t, e.Send(context.Background(), []string{"a@example.com", "b@example.com"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, gotMsg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Gun Detected!\r\n")
	assert.True(t, e.Accepts("a@example.com"))
	assert.False(t, e.Accepts("+15550001111"))
}

func TestEmail_NoAuthWithoutUser(t *testing.T) {
	e := NewEmail(SMTPConfig{Host: "localhost", Port: 25, From: "bot@example.com"}, "x")
	assert.Nil(t, e.auth)
}

func TestEmail_DeadlineClosesConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	closed := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Greet, then never answer EHLO.
		_, _ = conn.Write([]byte("220 test ESMTP\r\n"))
		_, _ = io.Copy(io.Discard, conn)
		close(closed)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	e := NewEmail(SMTPConfig{Host: "127.0.0.1", Port: port, From: "bot@example.com"}, "x")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = e.Send(ctx, []string{"a@example.com"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("smtp connection still open after deadline")
	}
}

type fakeMessages struct {
	mu   sync.Mutex
	to   []string
	body string
	fail map[string]bool
}

func (f *fakeMessages) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, *p.To)
	f.body = *p.Body
	if f.fail[*p.To] {
		return nil, errors.New("rejected")
	}
	return &twilioApi.ApiV2010Message{}, nil
}

func TestSMS_SendsEachNumber(t *testing.T) {
	api := &fakeMessages{fail: map[string]bool{"+2": true}}
	s := &SMS{from: "+100", body: "Gun Detected!", api: api}

	err := s.Send(context.Background(), []string{"+1", "+2", "+3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "+2")
	assert.Equal(t, []string{"+1", "+2", "+3"}, api.to)
	assert.Equal(t, "Gun Detected!", api.body)
	assert.True(t, s.Accepts("+15550001111"))
	assert.False(t, s.Accepts("a@example.com"))
}

type fakeAMQPChannel struct {
	exchange, key string
	msg           amqp.Publishing
	closed        bool
}

func (f *fakeAMQPChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakeAMQPChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQP_PublishesJSON(t *testing.T) {
	ch := &fakeAMQPChannel{}
	a := &AMQP{channel: ch, exchange: "alerts"}

	require.NoError(t, a.Publish(context.Background(), AlertEvent{SessionID: "s-1", Confidence: 0.9, Destinations: []string{"+1"}}))
	assert.Equal(t, "alerts", ch.exchange)
	assert.Equal(t, alertRoutingKey, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, "s-1", ch.msg.Headers["x-session-id"])

	var ev AlertEvent
	require.NoError(t, json.Unmarshal(ch.msg.Body, &ev))
	assert.Equal(t, "s-1", ev.SessionID)
	assert.Equal(t, []string{"+1"}, ev.Destinations)

	require.NoError(t, a.Close())
	assert.True(t, ch.closed)
}

func TestOpen_SkipsUnconfiguredChannels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SMTPHost = ""
	m, closeFn := Open(cfg, discardLogger)
	defer closeFn()
	assert.Empty(t, m.channels)
	assert.Empty(t, m.publishers)

	cfg.SMTPHost = "smtp.example.com"
	cfg.TwilioAccountSID, cfg.TwilioAuthToken = "AC1", "tok"
	m, _ = Open(cfg, discardLogger)
	require.Len(t, m.channels, 2)
	assert.Equal(t, "email", m.channels[0].Name())
	assert.Equal(t, "sms", m.channels[1].Name())
}
