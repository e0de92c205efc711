package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/jmsperu/sms-suite-whmcs-sub001/internal/model"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/secrets"
)

var (
	ErrUnknownGatewayType = errors.New("gateway driver not found")
	ErrGatewayNotFound    = errors.New("gateway not found")
	ErrGatewayDisabled    = errors.New("gateway is disabled")
	ErrInvalidConfig      = errors.New("invalid gateway configuration")
)

// Factory constructs a provider from a merged configuration map.
type Factory func(config map[string]string) (Provider, error)

// GatewayStore loads persisted gateway records for resolution.
type GatewayStore interface {
	GetGateway(ctx context.Context, id int64) (*model.Gateway, error)
}

// Registry maps provider type keys to factories and caches one live
// provider instance per gateway id. Instance construction decrypts the
// gateway's credential bundle and merges it with the plaintext settings.
//
// The cache is shared across concurrent dispatches; reads take the fast
// path, cache population is check-then-insert under the write lock.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[int64]Provider

	store  GatewayStore
	cipher *secrets.Cipher
}

func NewRegistry(store GatewayStore, cipher *secrets.Cipher) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[int64]Provider),
		store:     store,
		cipher:    cipher,
	}
}

// Register associates a type key with a constructor. Later registrations
// of the same key win, which lets external drivers override builtins.
func (r *Registry) Register(typeKey string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typeKey]; exists {
		logger.Warn("gateway driver re-registered", "type", typeKey)
	}
	r.factories[typeKey] = factory
}

// Create instantiates a provider of the given type with the given
// configuration, bypassing the gateway cache. The provider's declared
// field validators run against the configuration before it is returned.
func (r *Registry) Create(typeKey string, config map[string]string) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[typeKey]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownGatewayType
	}
	p, err := factory(config)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(p, config); err != nil {
		return nil, err
	}
	return p, nil
}

// Resolve returns the live provider for a stored gateway, constructing and
// caching it on first use. Disabled gateways never resolve.
func (r *Registry) Resolve(ctx context.Context, gatewayID int64) (Provider, error) {
	r.mu.RLock()
	if p, ok := r.instances[gatewayID]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	gw, err := r.store.GetGateway(ctx, gatewayID)
	if err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, ErrGatewayNotFound
	}
	if !gw.Active {
		return nil, ErrGatewayDisabled
	}

	config, err := r.buildConfig(gw)
	if err != nil {
		return nil, err
	}

	p, err := r.Create(gw.Type, config)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.instances[gatewayID]; ok {
		// lost the construction race; the cached instance wins
		return cached, nil
	}
	r.instances[gatewayID] = p
	return p, nil
}

// ClearCache drops the cached instance for one gateway, forcing the next
// Resolve to rebuild it from the stored record.
func (r *Registry) ClearCache(gatewayID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, gatewayID)
}

// ClearAll drops every cached instance.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[int64]Provider)
}

// buildConfig decrypts the credential bundle and merges it with the
// plaintext settings and gateway metadata into one flat map. Credentials
// take precedence over settings on key collisions.
func (r *Registry) buildConfig(gw *model.Gateway) (map[string]string, error) {
	config := make(map[string]string)

	if gw.Settings != "" {
		if err := json.Unmarshal([]byte(gw.Settings), &stringMap{config}); err != nil {
			return nil, err
		}
	}

	if gw.Credentials != "" {
		plain, err := r.cipher.Decrypt(gw.Credentials)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(plain, &stringMap{config}); err != nil {
			return nil, err
		}
	}

	config["gateway_id"] = strconv.FormatInt(gw.ID, 10)
	config["gateway_name"] = gw.Name
	config["channels"] = string(gw.Channels)
	config["webhook_token"] = gw.WebhookToken
	return config, nil
}

// stringMap unmarshals a JSON object into an existing map, stringifying
// scalar values so numeric settings survive the round trip.
type stringMap struct {
	m map[string]string
}

func (s *stringMap) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			s.m[k] = t
		case bool:
			s.m[k] = strconv.FormatBool(t)
		case float64:
			s.m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
			// skip
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return err
			}
			s.m[k] = string(b)
		}
	}
	return nil
}
