package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendDisabledReturnsSentinel(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: "user@example.com"})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestNewSMTPMailerRequiresHostAndPort(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587})
	require.NoError(t, err)
}

func TestFormatMessageEscapesHeaders(t *testing.T) {
	msg := formatMessage("noreply@example.com", "user@example.com", "Hi\r\nBcc: evil@example.com", "body")

	require.NotContains(t, msg, "Subject: Hi\r\nBcc:")
	require.Contains(t, msg, "Subject: Hi Bcc: evil@example.com")
}

func TestFormatMessageSeparatesHeadersFromBody(t *testing.T) {
	msg := formatMessage("noreply@example.com", "user@example.com", "Hi", "body text")

	require.Contains(t, msg, "charset=UTF-8\r\n\r\nbody text")
}

func TestOTPMessageBody(t *testing.T) {
	msg := OTPMessage("alice@example.com", "Alice", "482913")

	require.Equal(t, "alice@example.com", msg.To)
	require.Contains(t, msg.Body, "482913")
	require.Contains(t, msg.Body, "expire in 5 minutes")
	require.True(t, strings.HasPrefix(msg.Body, "Hello Alice,"))
}
