package central

import (
	"errors"
	"log/slog"

	"lyricon/models"
)

var (
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrDuplicateProvider = errors.New("provider already registered")
)

// Provider is one registered playback source and the player recording it.
type Provider struct {
	info    models.ProviderInfo
	player  *Player
	manager *ProviderManager
}

func (p *Provider) Info() *models.ProviderInfo {
	return &p.info
}

func (p *Provider) Player() *Player {
	return p.player
}

// Disconnect unregisters the provider from its manager.
func (p *Provider) Disconnect() {
	p.manager.Unregister(&p.info)
}

// ProviderManager tracks registered providers and routes every player's
// events through the dispatcher.
type ProviderManager struct {
	dispatcher *Dispatcher
	providers  *Set[*Provider]
}

func NewProviderManager(dispatcher *Dispatcher) *ProviderManager {
	return &ProviderManager{
		dispatcher: dispatcher,
		providers: NewSet(func(a, b *Provider) bool {
			return a.info.Same(&b.info)
		}),
	}
}

func (m *ProviderManager) Register(info models.ProviderInfo) (*Provider, error) {
	if !info.Valid() {
		return nil, ErrInvalidProvider
	}
	p := &Provider{info: info.Clone(), manager: m}
	p.player = NewPlayer(p.info, m.dispatcher)
	if !m.providers.Add(p) {
		return nil, ErrDuplicateProvider
	}
	slog.Info("provider registered", "provider", &p.info, "total", m.providers.Len())
	return p, nil
}

// Unregister reports whether a provider matching info was registered.
func (m *ProviderManager) Unregister(info *models.ProviderInfo) bool {
	p, ok := m.Lookup(info)
	if !ok || !m.providers.Remove(p) {
		return false
	}
	slog.Info("provider unregistered", "provider", info, "total", m.providers.Len())
	m.dispatcher.Forget(info)
	return true
}

func (m *ProviderManager) Lookup(info *models.ProviderInfo) (*Provider, bool) {
	return m.providers.Find(func(p *Provider) bool { return p.info.Same(info) })
}

func (m *ProviderManager) Providers() []*Provider {
	return m.providers.Snapshot()
}
