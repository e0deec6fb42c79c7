package models

import (
	"slices"
	"strings"
	"time"
)

type PlaybackStatus int

const (
	PlaybackStatusUnknown PlaybackStatus = iota
	PlaybackStatusPlaying
	PlaybackStatusPaused
	PlaybackStatusStopped
)

// ProviderInfo identifies a playback source. Two infos name the same provider
// iff both package names match.
type ProviderInfo struct {
	ProviderPackageName string   `json:"providerPackageName"`
	PlayerPackageName   string   `json:"playerPackageName"`
	Metadata            Metadata `json:"metadata,omitempty"`
}

func (p *ProviderInfo) Same(other *ProviderInfo) bool {
	if p == nil || other == nil {
		return false
	}
	return p.ProviderPackageName == other.ProviderPackageName &&
		p.PlayerPackageName == other.PlayerPackageName
}

func (p *ProviderInfo) Valid() bool {
	return strings.TrimSpace(p.ProviderPackageName) != "" && strings.TrimSpace(p.PlayerPackageName) != ""
}

func (p *ProviderInfo) Clone() ProviderInfo {
	return ProviderInfo{
		ProviderPackageName: p.ProviderPackageName,
		PlayerPackageName:   p.PlayerPackageName,
		Metadata:            p.Metadata.Clone(),
	}
}

func (p *ProviderInfo) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.ProviderPackageName + "/" + p.PlayerPackageName
}

type SubscriberInfo struct {
	PackageName string `json:"packageName"`
	ProcessName string `json:"processName"`
}

func (s *SubscriberInfo) Valid() bool {
	return strings.TrimSpace(s.PackageName) != ""
}

func (s *SubscriberInfo) String() string {
	if s.ProcessName == "" {
		return s.PackageName
	}
	return s.PackageName + ":" + s.ProcessName
}

type MPRISMetadata struct {
	TrackID  string
	Title    string
	Artists  []string
	Album    string
	Text     string
	URL      string
	Duration time.Duration
}

func (m *MPRISMetadata) Clone() MPRISMetadata {
	return MPRISMetadata{
		TrackID:  m.TrackID,
		Title:    m.Title,
		Artists:  slices.Clone(m.Artists),
		Album:    m.Album,
		Text:     m.Text,
		URL:      m.URL,
		Duration: m.Duration,
	}
}

type MPRISProperties struct {
	Metadata       MPRISMetadata
	Position       int64
	PlaybackStatus PlaybackStatus
}

func (p *MPRISProperties) Clone() MPRISProperties {
	return MPRISProperties{
		Metadata:       p.Metadata.Clone(),
		Position:       p.Position,
		PlaybackStatus: p.PlaybackStatus,
	}
}
