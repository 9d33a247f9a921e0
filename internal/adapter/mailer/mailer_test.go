package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailerSend(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "bot@example.com"})

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotBody string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotBody = addr, a, to, string(msg)
		assert.Equal(t, "bot@example.com", from)
		return nil
	}

	err := m.Send(context.Background(), Message{To: []string{"team@example.com"}, Subject: "Nuevo lead", Body: "Nombre: Ana\nEmail: ana@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"team@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotBody, "From: bot@example.com\r\n"))
	assert.Contains(t, gotBody, "Subject: Nuevo lead\r\n")
	assert.Contains(t, gotBody, "\r\n\r\nNombre: Ana\r\nEmail: ana@example.com")
}

func TestSMTPMailerWithoutCredentials(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25, From: "bot@example.com"})
	m.send = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		assert.Nil(t, a)
		return nil
	}
	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}))
}

func TestSMTPMailerErrors(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25})

	assert.Error(t, m.Send(context.Background(), Message{}))

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay refused") }
	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "relay refused")
}

func TestSMTPMailerHonorsContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25})
	release := make(chan struct{})
	defer close(release)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Send(ctx, Message{To: []string{"a@example.com"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewSelectsImplementation(t *testing.T) {
	assert.IsType(t, LogMailer{}, New(SMTPConfig{}))
	assert.IsType(t, &SMTPMailer{}, New(SMTPConfig{Host: "smtp.example.com"}))
	assert.NoError(t, LogMailer{}.Send(context.Background(), Message{To: []string{"a@example.com"}}))
}
