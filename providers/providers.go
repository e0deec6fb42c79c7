package providers

import (
	"context"
	"errors"

	"lyricon/central"
	"lyricon/models"
)

const (
	MPRISProviderID = "mpris"
)

var (
	ErrUnavailable = errors.New("provider unavailable")
	ErrBadSignal   = errors.New("malformed signal")
)

// Provider is a local playback source. Serve registers players with the
// registry as they appear and blocks until ctx is done.
type Provider interface {
	ID() string
	Serve(ctx context.Context) error
}

// Registry is where providers announce their players.
type Registry interface {
	Register(info models.ProviderInfo) (*central.Provider, error)
	Unregister(info *models.ProviderInfo) bool
}
