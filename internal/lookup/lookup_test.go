package lookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/repository"
)

type fakePrefixRepo struct {
	prefixes map[string]*model.Prefix
	calls    int
}

func (f *fakePrefixRepo) MatchPrefix(ctx context.Context, number string) (*model.Prefix, error) {
	f.calls++
	if p, ok := f.prefixes[number]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func newTestService() (*Service, *fakePrefixRepo) {
	repo := &fakePrefixRepo{prefixes: map[string]*model.Prefix{
		"254712345678": {Prefix: "254712", Country: "KE", Operator: "Safaricom"},
		"15551234567":  {Prefix: "1", Country: "US"},
	}}
	return NewService(repo), repo
}

func TestService_ExtractCountryCode(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	t.Run("matched prefix", func(t *testing.T) {
		country, ok := svc.ExtractCountryCode(ctx, "+254 712 345 678")
		assert.True(t, ok)
		assert.Equal(t, "KE", country)
	})

	t.Run("unknown number", func(t *testing.T) {
		country, ok := svc.ExtractCountryCode(ctx, "99900011122")
		assert.False(t, ok)
		assert.Empty(t, country)
	})

	t.Run("empty number skips the table", func(t *testing.T) {
		before := repo.calls
		_, ok := svc.ExtractCountryCode(ctx, "")
		assert.False(t, ok)
		assert.Equal(t, before, repo.calls)
	})
}

func TestService_DetectNetwork(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	t.Run("operator carried on the prefix", func(t *testing.T) {
		network, ok := svc.DetectNetwork(ctx, "254712345678", "KE")
		assert.True(t, ok)
		assert.Equal(t, "Safaricom", network)
	})

	t.Run("prefix without operator", func(t *testing.T) {
		_, ok := svc.DetectNetwork(ctx, "15551234567", "US")
		assert.False(t, ok)
	})

	t.Run("country mismatch", func(t *testing.T) {
		_, ok := svc.DetectNetwork(ctx, "254712345678", "US")
		assert.False(t, ok)
	})
}
