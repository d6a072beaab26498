package mail

import (
	"context"
	"errors"
	"net/smtp"
	"scorepusher/lib/notify/fields"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	mail *email.Email
	addr string
	auth bool
}

func recordingChannel(t testing.TB, config map[string]any, failures ...error) (*Channel, *[]sentMail) {
	channel, err := New(config)
	require.NoError(t, err)

	var sent []sentMail
	channel.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		sent = append(sent, sentMail{mail: mail, addr: addr, auth: auth != nil})
		if len(failures) > 0 {
			err := failures[0]
			failures = failures[1:]
			return err
		}
		return nil
	}
	return channel, &sent
}

func TestPush(t *testing.T) {
	channel, sent := recordingChannel(t, map[string]any{
		"server":   "smtp.example.com",
		"port":     float64(587),
		"from":     "Score Pusher <bot@example.com>",
		"to":       "student@example.com",
		"username": "bot@example.com",
		"password": "secret",
	})
	require.Equal(t, Type, channel.Type())

	message := "【成绩更新】\n课程：2023-2024-1-B1100011S 程序设计 （必修）\n成绩：85 → 90\n"
	require.NoError(t, channel.Push(context.Background(), message))

	require.Len(t, *sent, 1)
	got := (*sent)[0]
	require.Equal(t, "smtp.example.com:587", got.addr)
	require.True(t, got.auth)
	require.Equal(t, "【成绩更新】", got.mail.Subject)
	require.Equal(t, []string{"student@example.com"}, got.mail.To)
	require.Equal(t, message, string(got.mail.Text))
}

func TestPushRetriesWithoutAuth(t *testing.T) {
	channel, sent := recordingChannel(t, map[string]any{
		"server":   "localhost",
		"port":     float64(25),
		"from":     "bot@example.com",
		"to":       []any{"a@example.com", "b@example.com"},
		"username": "bot",
	}, errors.New("smtp: server doesn't support AUTH"))

	require.NoError(t, channel.Push(context.Background(), "hello"))
	require.Len(t, *sent, 2)
	require.True(t, (*sent)[0].auth)
	require.False(t, (*sent)[1].auth)
}

func TestPushFailure(t *testing.T) {
	channel, _ := recordingChannel(t, map[string]any{
		"server": "localhost",
		"port":   float64(25),
		"from":   "bot@example.com",
		"to":     "a@example.com",
	}, errors.New("dial tcp: connection refused"))

	err := channel.Push(context.Background(), "hello")
	require.ErrorContains(t, err, "connection refused")
}

func TestPushCanceled(t *testing.T) {
	channel, sent := recordingChannel(t, map[string]any{
		"server": "localhost",
		"port":   float64(25),
		"from":   "bot@example.com",
		"to":     "a@example.com",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, channel.Push(ctx, "hello"), context.Canceled)
	require.Len(t, *sent, 0)
}

func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name   string
		config map[string]any
	}{
		{name: "missing server", config: map[string]any{"port": 25, "from": "a@b.c", "to": "a@b.c"}},
		{name: "bad port", config: map[string]any{"server": "localhost", "port": 0, "from": "a@b.c", "to": "a@b.c"}},
		{name: "bad recipient", config: map[string]any{"server": "localhost", "port": 25, "from": "a@b.c", "to": "nobody"}},
		{name: "no recipients", config: map[string]any{"server": "localhost", "port": 25, "from": "a@b.c", "to": []any{}}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.config)
			var fieldsErr *fields.Error
			require.True(t, errors.As(err, &fieldsErr))
		})
	}
}

func TestSubject(t *testing.T) {
	require.Equal(t, "【新成绩】", subject("【新成绩】\n课程：x\n"))
	require.Equal(t, "成绩通知", subject("\n\n"))
}
