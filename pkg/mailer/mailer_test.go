package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type stubSender struct {
	sent []*mail.Msg
	err  error
}

func (s *stubSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	s.sent = append(s.sent, messages...)
	return s.err
}

func TestSendBuildsMessage(t *testing.T) {
	stub := &stubSender{}
	m := newMailer(stub, "orders@example.com", "Marketplace")

	err := m.Send(context.Background(), Message{
		To:      "buyer@example.com",
		Subject: "Order placed",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})
	require.NoError(t, err)
	require.Len(t, stub.sent, 1)

	recipients, err := stub.sent[0].GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"buyer@example.com"}, recipients)
	require.Equal(t, []string{"Order placed"}, stub.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestSendRequiresRecipient(t *testing.T) {
	stub := &stubSender{}
	m := newMailer(stub, "orders@example.com", "Marketplace")

	err := m.Send(context.Background(), Message{Subject: "x", HTML: "y"})
	require.ErrorIs(t, err, errRecipientRequired)
	require.Empty(t, stub.sent)
}

func TestSendWrapsTransportError(t *testing.T) {
	stub := &stubSender{err: errors.New("connection refused")}
	m := newMailer(stub, "orders@example.com", "")

	err := m.Send(context.Background(), Message{To: "buyer@example.com", HTML: "y"})
	require.ErrorContains(t, err, "connection refused")
}
