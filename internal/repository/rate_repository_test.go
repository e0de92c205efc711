package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

func seedRates(t *testing.T, repo *RateRepository) {
	t.Helper()
	ctx := context.Background()
	rates := []*model.Rate{
		{Country: "KE", Network: "Safaricom", Channel: model.ChannelSMS, Rate: 0.8, CreditCost: 1},
		{Country: "KE", Network: "", Channel: model.ChannelSMS, Rate: 1.0, CreditCost: 1},
		{Country: "", Network: "", Channel: model.ChannelSMS, Rate: 2.5, CreditCost: 2},
		{Country: "", Network: "", Channel: model.ChannelWhatsApp, Rate: 0.5, CreditCost: 1},
	}
	for _, r := range rates {
		_, err := repo.CreateRate(ctx, r)
		require.NoError(t, err)
	}
}

func TestRateRepository_FindRate(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewRateRepository(db)
	seedRates(t, repo)
	ctx := context.Background()

	t.Run("network-specific wins", func(t *testing.T) {
		r, err := repo.FindRate(ctx, "KE", "Safaricom", model.ChannelSMS)
		require.NoError(t, err)
		assert.InDelta(t, 0.8, r.Rate, 0.0001)
	})

	t.Run("country-wide fallback", func(t *testing.T) {
		r, err := repo.FindRate(ctx, "KE", "Airtel", model.ChannelSMS)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, r.Rate, 0.0001)
	})

	t.Run("platform fallback", func(t *testing.T) {
		r, err := repo.FindRate(ctx, "US", "", model.ChannelSMS)
		require.NoError(t, err)
		assert.InDelta(t, 2.5, r.Rate, 0.0001)
		assert.Equal(t, 2, r.CreditCost)
	})

	t.Run("channels are priced independently", func(t *testing.T) {
		r, err := repo.FindRate(ctx, "US", "", model.ChannelWhatsApp)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, r.Rate, 0.0001)
	})
}

func TestRateRepository_MatchPrefix(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewRateRepository(db)
	ctx := context.Background()

	prefixes := []*model.Prefix{
		{Prefix: "254", Country: "KE"},
		{Prefix: "254722", Country: "KE", Operator: "Safaricom"},
		{Prefix: "1", Country: "US"},
	}
	for _, p := range prefixes {
		_, err := repo.CreatePrefix(ctx, p)
		require.NoError(t, err)
	}

	t.Run("longest prefix wins", func(t *testing.T) {
		p, err := repo.MatchPrefix(ctx, "254722123456")
		require.NoError(t, err)
		assert.Equal(t, "Safaricom", p.Operator)
	})

	t.Run("shorter prefix still matches", func(t *testing.T) {
		p, err := repo.MatchPrefix(ctx, "254733123456")
		require.NoError(t, err)
		assert.Equal(t, "KE", p.Country)
		assert.Empty(t, p.Operator)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := repo.MatchPrefix(ctx, "99900")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOptOutRepository_IsBlocked(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewOptOutRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.OptOut{AccountID: 0, Number: "15550001111", Reason: "stop keyword"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.OptOut{AccountID: 7, Number: "15550002222"})
	require.NoError(t, err)

	t.Run("global block applies to everyone", func(t *testing.T) {
		blocked, err := repo.IsBlocked(ctx, 42, "15550001111")
		require.NoError(t, err)
		assert.True(t, blocked)
	})

	t.Run("account block is scoped", func(t *testing.T) {
		blocked, err := repo.IsBlocked(ctx, 7, "15550002222")
		require.NoError(t, err)
		assert.True(t, blocked)

		blocked, err = repo.IsBlocked(ctx, 8, "15550002222")
		require.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("remove lifts only the account block", func(t *testing.T) {
		require.NoError(t, repo.Remove(ctx, 7, "15550002222"))
		blocked, err := repo.IsBlocked(ctx, 7, "15550002222")
		require.NoError(t, err)
		assert.False(t, blocked)
	})
}

func TestSenderIDRepository(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewSenderIDRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.SenderID{AccountID: 7, Sender: "ACME", IsDefault: true, Active: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.SenderID{AccountID: 7, Sender: "PROMO", Active: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.SenderID{AccountID: 7, Sender: "OLD", Active: false})
	require.NoError(t, err)

	t.Run("default sender", func(t *testing.T) {
		s, err := repo.GetDefault(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "ACME", s.Sender)
	})

	t.Run("no default configured", func(t *testing.T) {
		s, err := repo.GetDefault(ctx, 8)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("approval checks active flag", func(t *testing.T) {
		ok, err := repo.IsApproved(ctx, 7, "PROMO")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IsApproved(ctx, 7, "OLD")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.IsApproved(ctx, 7, "NOBODY")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
