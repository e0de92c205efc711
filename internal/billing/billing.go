// Package billing prices outbound traffic from the rates table and applies
// deductions against account balances.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/repository"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
)

type AccountRepository interface {
	Get(ctx context.Context, id int64) (*model.Account, error)
	Deduct(ctx context.Context, id int64, amount float64) error
	DeductCredits(ctx context.Context, id int64, credits int64) error
}

type RateRepository interface {
	FindRate(ctx context.Context, country, network string, channel model.Channel) (*model.Rate, error)
}

// CreditMemo attaches audit context to a credit deduction.
type CreditMemo struct {
	Memo        string
	MessageID   int64
	Sender      string
	Destination string
	Network     string
}

type Service struct {
	accounts AccountRepository
	rates    RateRepository
}

func NewService(accounts AccountRepository, rates RateRepository) *Service {
	return &Service{accounts: accounts, rates: rates}
}

// CalculateCost prices a message: per-segment rate for the destination's
// country/network times the billable unit count. Unknown destinations use
// the platform fallback rate; no rate at all prices to zero.
func (s *Service) CalculateCost(ctx context.Context, accountID int64, segments int, channel model.Channel, gatewayID int64, country, network string) (float64, error) {
	rate, err := s.rates.FindRate(ctx, country, network, channel)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("no rate configured, pricing to zero",
			"country", country, "network", network, "channel", channel)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rate.Rate * float64(segments), nil
}

// HasBalance checks whether the account can cover the cost under its
// billing mode.
func (s *Service) HasBalance(ctx context.Context, accountID int64, cost float64) (bool, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	if !acc.Active {
		return false, nil
	}
	if acc.BillingMode == model.BillingModeCredit {
		return acc.CreditBalance > 0, nil
	}
	return acc.Balance >= cost, nil
}

// BillingMode reports how the account pays.
func (s *Service) BillingMode(ctx context.Context, accountID int64) (model.BillingMode, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	return acc.BillingMode, nil
}

// Deduct applies the money cost for a sent message.
func (s *Service) Deduct(ctx context.Context, accountID, messageID int64, cost float64, segments int) error {
	if cost <= 0 {
		return nil
	}
	if err := s.accounts.Deduct(ctx, accountID, cost); err != nil {
		return fmt.Errorf("deduct balance for message %d: %w", messageID, err)
	}
	logger.Info("balance deducted",
		"account_id", accountID, "message_id", messageID,
		"cost", cost, "segments", segments)
	return nil
}

// DeductCredits applies a credit deduction with its audit memo.
func (s *Service) DeductCredits(ctx context.Context, accountID int64, credits int64, memo CreditMemo) error {
	if credits <= 0 {
		return nil
	}
	if err := s.accounts.DeductCredits(ctx, accountID, credits); err != nil {
		return fmt.Errorf("deduct credits for message %d: %w", memo.MessageID, err)
	}
	logger.Info("credits deducted",
		"account_id", accountID, "message_id", memo.MessageID,
		"credits", credits, "memo", memo.Memo,
		"sender", memo.Sender, "destination", memo.Destination,
		"network", memo.Network)
	return nil
}

// CreditCost returns the per-message credit price for a destination.
func (s *Service) CreditCost(ctx context.Context, country, network string) int {
	rate, err := s.rates.FindRate(ctx, country, network, model.ChannelSMS)
	if err != nil || rate.CreditCost <= 0 {
		return 1
	}
	return rate.CreditCost
}
