package adapters

import (
	"strings"

	"github.com/coopsuite/copay/internal/gateway/domain"
)

type Registry struct {
	clients map[string]domain.Client
}

func NewRegistry(clients ...domain.Client) *Registry {
	registry := &Registry{clients: map[string]domain.Client{}}
	for _, client := range clients {
		if client == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(client.Provider()))
		if provider == "" {
			continue
		}
		registry.clients[provider] = client
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	_, ok := r.clients[provider]
	return ok
}

func (r *Registry) Resolve(provider string) (domain.Client, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	client, ok := r.clients[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return client, nil
}

// ForChannel resolves the client serving a public channel code.
func (r *Registry) ForChannel(channelCode string) (domain.Client, domain.Channel, error) {
	channel, ok := domain.LookupChannel(channelCode)
	if !ok {
		return nil, domain.Channel{}, domain.ErrUnsupportedChannel
	}
	client, err := r.Resolve(channel.Provider)
	if err != nil {
		return nil, domain.Channel{}, err
	}
	return client, channel, nil
}
