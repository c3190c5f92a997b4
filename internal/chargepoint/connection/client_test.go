package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/model"
)

// backend is a scripted W3CP backend. script runs once per accepted
// connection.
type backend struct {
	t       *testing.T
	server  *httptest.Server
	accepts atomic.Int32
	script  func(conn *websocket.Conn)
}

func newBackend(t *testing.T, script func(conn *websocket.Conn)) *backend {
	t.Helper()
	b := &backend{t: t, script: script}
	upgrader := websocket.Upgrader{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		b.accepts.Add(1)
		b.script(conn)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) url() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func send[T any](t *testing.T, conn *websocket.Conn, typ model.MessageType, payload T) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(model.NewMessage(typ, payload)))
}

func receive[T any](t *testing.T, conn *websocket.Conn, want model.MessageType) model.Message[T] {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := model.ParseEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, want, env.Type)
	msg, err := model.DecodeMessage[T](env)
	require.NoError(t, err)
	return msg
}

func newSigner(t *testing.T) *model.Signer {
	t.Helper()
	key, err := model.GenerateKey(model.KeyTypeEd25519)
	require.NoError(t, err)
	signer, err := model.NewSigner(key)
	require.NoError(t, err)
	return signer
}

func newTestClient(t *testing.T, url string, signer *model.Signer) *Client {
	t.Helper()
	cfg := config.BackendConfig{
		URL:              url,
		HandshakeTimeout: time.Second,
		WriteTimeout:     time.Second,
		ReconnectInitial: 10 * time.Millisecond,
		ReconnectMax:     50 * time.Millisecond,
	}
	log := zerolog.Nop()
	return NewClient(cfg, Identity{CPID: "CP-TEST-1", Type: model.IdentityPublicKey, Signer: signer}, &log)
}

func runClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("client did not stop")
		}
	})
}

func TestHandshake(t *testing.T) {
	signer := newSigner(t)
	correlation := uuid.New()
	reports := make(chan model.IdentityReport, 1)
	proofs := make(chan model.IdentityProof, 1)

	b := newBackend(t, func(conn *websocket.Conn) {
		send(t, conn, model.MessageTypeIdentityChallenge, model.IdentityChallenge{
			Nonce:      "n-123",
			Timestamp:  time.Now().UTC(),
			Difficulty: 6,
		})

		proof := receive[model.IdentityProof](t, conn, model.MessageTypeIdentityProof)
		require.NoError(t, model.VerifyMessage(proof, signer.Verifier()))
		ok, err := model.MeetsDifficulty(proof.Payload, 6)
		require.NoError(t, err)
		require.True(t, ok)
		proofs <- proof.Payload

		send(t, conn, model.MessageTypeConnectionStatus, model.ConnectionStatus{Status: model.ConnectionVerified})

		send(t, conn, model.MessageTypeIdentityDiscovery, model.IdentityDiscovery{
			CorrelationID: correlation,
			Timestamp:     time.Now().UTC(),
		})
		report := receive[model.IdentityReport](t, conn, model.MessageTypeIdentityReport)
		require.NoError(t, model.VerifyMessage(report, signer.Verifier()))
		reports <- report.Payload

		// Hold the connection until the client goes away.
		_, _, _ = conn.ReadMessage()
	})

	c := newTestClient(t, b.url(), signer)
	opened := make(chan struct{}, 1)
	verified := make(chan struct{}, 1)
	c.OnOpened(func(context.Context) { opened <- struct{}{} })
	c.OnVerified(func(context.Context) { verified <- struct{}{} })
	runClient(t, c)

	waitFor(t, opened, "opened")

	proof := <-proofs
	assert.Equal(t, "CP-TEST-1", proof.CPID)
	assert.Equal(t, "n-123", proof.Nonce)
	assert.Equal(t, model.IdentityPublicKey, proof.IdentityType)

	waitFor(t, verified, "verified")
	assert.True(t, c.Verified())
	assert.True(t, c.Connected())

	select {
	case report := <-reports:
		assert.Equal(t, correlation, report.CorrelationID)
		require.Len(t, report.PublicKeys, 1)
		pub, err := signer.PublicKey()
		require.NoError(t, err)
		assert.Equal(t, pub, report.PublicKeys[0])
		assert.Empty(t, report.Web3Identities)
	case <-time.After(5 * time.Second):
		t.Fatal("no identity report")
	}
}

func TestReconnectAfterRejection(t *testing.T) {
	signer := newSigner(t)
	reason := "unknown charge point"

	b := newBackend(t, func(conn *websocket.Conn) {
		send(t, conn, model.MessageTypeConnectionStatus, model.ConnectionStatus{
			Status: model.ConnectionDisconnected,
			Reason: &reason,
		})
		_, _, _ = conn.ReadMessage()
	})

	c := newTestClient(t, b.url(), signer)
	runClient(t, c)

	require.Eventually(t, func() bool { return b.accepts.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
	assert.False(t, c.Verified())
}

func TestUnsupportedMessageGetsErrorReply(t *testing.T) {
	signer := newSigner(t)
	replies := make(chan model.MessageError, 2)

	b := newBackend(t, func(conn *websocket.Conn) {
		send(t, conn, model.MessageTypeDescribeVariables, map[string]any{"x": 1})
		replies <- receive[model.MessageError](t, conn, model.MessageTypeMessageError).Payload

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"identityChallenge"}`)))
		replies <- receive[model.MessageError](t, conn, model.MessageTypeMessageError).Payload

		_, _, _ = conn.ReadMessage()
	})

	c := newTestClient(t, b.url(), signer)
	runClient(t, c)

	for _, want := range []string{CodeUnsupportedMessage, CodeInvalidMessage} {
		select {
		case got := <-replies:
			assert.Equal(t, want, got.Code)
			assert.NotEmpty(t, got.Message)
		case <-time.After(5 * time.Second):
			t.Fatalf("no %s reply", want)
		}
	}
	assert.False(t, c.Verified())
}

func TestSendWithoutConnection(t *testing.T) {
	c := newTestClient(t, "ws://127.0.0.1:1", newSigner(t))
	err := c.Send(context.Background(), model.NewMessage(model.MessageTypeChargePointStatus, struct{}{}))
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.Connected())
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
