// Package lookup resolves destination numbers to countries and mobile
// operators through the dialing-prefix table.
package lookup

import (
	"context"
	"errors"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/provider"
	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/repository"
)

type PrefixRepository interface {
	MatchPrefix(ctx context.Context, number string) (*model.Prefix, error)
}

type Service struct {
	prefixes PrefixRepository
}

func NewService(prefixes PrefixRepository) *Service {
	return &Service{prefixes: prefixes}
}

// ExtractCountryCode finds the country for a destination number via the
// longest matching dialing prefix. Unknown numbers return ("", false)
// rather than an error; pricing falls back to the platform default rate.
func (s *Service) ExtractCountryCode(ctx context.Context, phone string) (string, bool) {
	p, err := s.match(ctx, phone)
	if err != nil || p == nil {
		return "", false
	}
	return p.Country, true
}

// DetectNetwork finds the mobile operator for a destination number where
// the prefix table carries one.
func (s *Service) DetectNetwork(ctx context.Context, phone string, countryCode string) (string, bool) {
	p, err := s.match(ctx, phone)
	if err != nil || p == nil || p.Operator == "" {
		return "", false
	}
	if countryCode != "" && p.Country != countryCode {
		return "", false
	}
	return p.Operator, true
}

func (s *Service) match(ctx context.Context, phone string) (*model.Prefix, error) {
	digits := provider.FormatPhone(phone, false)
	if digits == "" {
		return nil, nil
	}
	p, err := s.prefixes.MatchPrefix(ctx, digits)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return p, err
}
