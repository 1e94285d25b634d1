package mail

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridGateway(t *testing.T) {
	gateway := NewSendGridGateway(SendGridConfig{
		APIKey:    "SG.test",
		FromEmail: "noreply@ug.edu.gh",
		FromName:  "Campus Directory",
	})

	assert.NotNil(t, gateway)
	assert.NotNil(t, gateway.client)
	assert.Equal(t, "noreply@ug.edu.gh", gateway.from.Address)
	assert.Equal(t, "Campus Directory", gateway.from.Name)
	assert.Equal(t, "sendgrid", gateway.GetName())
}

func TestLogGateway_Send(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	gateway := NewLogGateway(logger)

	_, ok := gateway.Last()
	assert.False(t, ok)

	msg := Message{To: "ama@ug.edu.gh", Subject: "Password reset token", Text: "reset link"}
	require.NoError(t, gateway.Send(context.Background(), msg))

	last, ok := gateway.Last()
	require.True(t, ok)
	assert.Equal(t, msg, last)

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "ama@ug.edu.gh", hook.Entries[0].Data["to"])
	assert.Equal(t, "log", gateway.GetName())
}
