package central

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"lyricon/models"
)

var (
	ErrInvalidSubscriber   = errors.New("invalid subscriber")
	ErrDuplicateSubscriber = errors.New("subscriber already registered")
)

// Subscriber forwards active player events to a remote listener. Once the
// remote is detached the subscriber silently drops events, so a broadcast
// racing with its removal is harmless.
type Subscriber struct {
	info   models.SubscriberInfo
	remote atomic.Pointer[ActivePlayerListener]
}

func (s *Subscriber) Info() *models.SubscriberInfo {
	return &s.info
}

func (s *Subscriber) detach() {
	s.remote.Store(nil)
}

func (s *Subscriber) forward(fn func(ActivePlayerListener)) {
	if r := s.remote.Load(); r != nil {
		fn(*r)
	}
}

func (s *Subscriber) OnActiveProviderChanged(info *models.ProviderInfo) {
	s.forward(func(l ActivePlayerListener) { l.OnActiveProviderChanged(info) })
}

func (s *Subscriber) OnSongChanged(song *models.Song) {
	s.forward(func(l ActivePlayerListener) { l.OnSongChanged(song) })
}

func (s *Subscriber) OnPlaybackStateChanged(playing bool) {
	s.forward(func(l ActivePlayerListener) { l.OnPlaybackStateChanged(playing) })
}

func (s *Subscriber) OnPositionChanged(position int64) {
	s.forward(func(l ActivePlayerListener) { l.OnPositionChanged(position) })
}

func (s *Subscriber) OnSeekTo(position int64) {
	s.forward(func(l ActivePlayerListener) { l.OnSeekTo(position) })
}

func (s *Subscriber) OnPostText(text string) {
	s.forward(func(l ActivePlayerListener) { l.OnPostText(text) })
}

// SubscriberManager tracks remote subscribers and keeps each one registered
// with the dispatcher for as long as it lives.
type SubscriberManager struct {
	dispatcher  *Dispatcher
	subscribers *Set[*Subscriber]
}

func NewSubscriberManager(dispatcher *Dispatcher) *SubscriberManager {
	return &SubscriberManager{
		dispatcher: dispatcher,
		subscribers: NewSet(func(a, b *Subscriber) bool {
			return a.info == b.info
		}),
	}
}

func (m *SubscriberManager) Register(info models.SubscriberInfo, remote ActivePlayerListener) (*Subscriber, error) {
	if !info.Valid() || remote == nil {
		return nil, ErrInvalidSubscriber
	}
	s := &Subscriber{info: info}
	s.remote.Store(&remote)
	if !m.subscribers.Add(s) {
		return nil, ErrDuplicateSubscriber
	}
	m.dispatcher.AddListener(s)
	slog.Info("subscriber registered", "subscriber", &s.info, "total", m.subscribers.Len())
	return s, nil
}

// Unregister is the death path of a subscriber. It reports whether a
// subscriber matching info was registered.
func (m *SubscriberManager) Unregister(info *models.SubscriberInfo) bool {
	s, ok := m.subscribers.Find(func(s *Subscriber) bool { return s.info == *info })
	if !ok || !m.subscribers.Remove(s) {
		return false
	}
	s.detach()
	m.dispatcher.RemoveListener(s)
	slog.Info("subscriber unregistered", "subscriber", info, "total", m.subscribers.Len())
	return true
}

func (m *SubscriberManager) Subscribers() []*Subscriber {
	return m.subscribers.Snapshot()
}
