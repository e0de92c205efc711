package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

func TestGatewayRepository_GetGateway(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGatewayRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Gateway{
		Type:         "twilio",
		Name:         "Primary Twilio",
		Channels:     model.GatewayChannelBoth,
		Active:       true,
		Credentials:  "enc-blob",
		Settings:     `{"region":"us1"}`,
		WebhookToken: "tok",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := repo.GetGateway(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "twilio", got.Type)
	assert.Equal(t, "enc-blob", got.Credentials)
	assert.True(t, got.SupportsChannel(model.ChannelWhatsApp))

	t.Run("missing gateway is nil not error", func(t *testing.T) {
		got, err := repo.GetGateway(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestGatewayRepository_ListActive(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGatewayRepository(db)
	ctx := context.Background()

	seed := []*model.Gateway{
		{Type: "twilio", Name: "a", Channels: model.GatewayChannelBoth, Active: true},
		{Type: "vonage", Name: "b", Channels: model.GatewayChannelSMS, Active: true},
		{Type: "whatsapp_cloud", Name: "c", Channels: model.GatewayChannelWhatsApp, Active: true},
		{Type: "plivo", Name: "d", Channels: model.GatewayChannelSMS, Active: false},
	}
	for _, g := range seed {
		_, err := repo.Create(ctx, g)
		require.NoError(t, err)
	}

	sms, err := repo.ListActive(ctx, model.ChannelSMS)
	require.NoError(t, err)
	assert.Len(t, sms, 2)

	wa, err := repo.ListActive(ctx, model.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Len(t, wa, 2)
}

func TestGatewayRepository_Update(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGatewayRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Gateway{Type: "twilio", Name: "gw", Active: true})
	require.NoError(t, err)

	created.Active = false
	created.Name = "gw (disabled)"
	require.NoError(t, repo.Update(ctx, created))

	got, err := repo.GetGateway(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "gw (disabled)", got.Name)
}
