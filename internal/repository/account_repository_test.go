package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
)

func TestAccountRepository_Deduct(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)
	ctx := context.Background()

	acc, err := repo.Create(ctx, &model.Account{
		Balance:     10.0,
		BillingMode: model.BillingModeBalance,
		Active:      true,
	})
	require.NoError(t, err)

	require.NoError(t, repo.Deduct(ctx, acc.ID, 4.5))

	got, err := repo.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.5, got.Balance, 0.0001)

	t.Run("deduction never goes negative", func(t *testing.T) {
		err := repo.Deduct(ctx, acc.ID, 100.0)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		got, err := repo.Get(ctx, acc.ID)
		require.NoError(t, err)
		assert.InDelta(t, 5.5, got.Balance, 0.0001)
	})
}

func TestAccountRepository_DeductCredits(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)
	ctx := context.Background()

	acc, err := repo.Create(ctx, &model.Account{
		CreditBalance: 3,
		BillingMode:   model.BillingModeCredit,
		Active:        true,
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeductCredits(ctx, acc.ID, 2))
	assert.ErrorIs(t, repo.DeductCredits(ctx, acc.ID, 2), ErrInsufficientFunds)

	got, err := repo.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CreditBalance)
}

func TestAccountRepository_Get(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)

	_, err := repo.Get(context.Background(), 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}
