package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPINMessage(t *testing.T) {
	msg, err := PINMessage("jdoe@example.org", "Jane Doe", "4821")
	require.NoError(t, err)
	assert.Equal(t, "jdoe@example.org", msg.To)
	assert.Contains(t, msg.Body, "Dear Jane Doe")
	assert.Contains(t, msg.Body, "4821")

	_, err = PINMessage("", "Jane", "1")
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = PINMessage("a@b.c", "Jane", "")
	assert.ErrorIs(t, err, ErrNoPIN)
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	s := NewSMTPSender(func() Config { return Config{Server: "smtp.example.org"} }, nil)
	err := s.Send(context.Background(), Message{To: "a@b.c"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPSender_NoRecipient(t *testing.T) {
	s := NewSMTPSender(func() Config { return Config{Server: "smtp.example.org", From: "pbx@example.org"} }, nil)
	err := s.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}
