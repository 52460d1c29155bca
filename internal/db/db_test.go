package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"batch-dispatch-service/internal/models"
)

func TestDestinationsFromGroupsByChannel(t *testing.T) {
	dest := destinationsFrom([]models.ContactPoint{
		{Channel: models.ChannelEmail, Target: "ops@example.com", Status: "active"},
		{Channel: models.ChannelChat, Target: "telegram:42", Status: "active"},
		{Channel: models.ChannelChat, Target: "https://hooks.example.com/T1", Status: "deleted"},
		{Channel: models.ChannelPush, Target: "sub-1", Status: "active"},
		{Channel: models.ChannelPush, Target: "", Status: "active"},
		{Channel: "fax", Target: "555", Status: "active"},
	})

	require.Equal(t, []string{"ops@example.com"}, dest.Emails)
	require.Equal(t, []string{"telegram:42"}, dest.Chats)
	require.Equal(t, []string{"sub-1"}, dest.PushSubscriptions)
}
