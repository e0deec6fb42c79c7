package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lyricon/central"
	"lyricon/models"
)

const (
	ProviderPath   = "/provider"
	SubscriberPath = "/subscriber"

	maxMessageSize = 16 << 20
	writeWait      = 5 * time.Second
	sendBuffer     = 64
)

var ErrUnknownOp = errors.New("unknown op")

// Server exposes the central registries over WebSocket. Remote providers feed
// their player through /provider, remote subscribers receive the events of
// the active player through /subscriber. A closed connection is the death
// notification of its peer.
type Server struct {
	providers   *central.ProviderManager
	subscribers *central.SubscriberManager
	upgrader    websocket.Upgrader
	server      *http.Server
}

func NewServer(providers *central.ProviderManager, subscribers *central.SubscriberManager) *Server {
	s := &Server{
		providers:   providers,
		subscribers: subscribers,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+ProviderPath, s.providerFunc)
	mux.HandleFunc("GET "+SubscriberPath, s.subscriberFunc)
	return mux
}

// ListenAndServe blocks until ctx is done or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("bridge listening", "address", addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err := s.server.Shutdown(shutdownCtx)
		if err != nil {
			s.server.Close()
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func registerStatus(err error) int {
	switch {
	case errors.Is(err, central.ErrDuplicateProvider), errors.Is(err, central.ErrDuplicateSubscriber):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) providerFunc(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	info := models.ProviderInfo{
		ProviderPackageName: q.Get("provider"),
		PlayerPackageName:   q.Get("player"),
	}
	provider, err := s.providers.Register(info)
	if err != nil {
		http.Error(w, err.Error(), registerStatus(err))
		return
	}
	defer provider.Disconnect()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade", "error", err, "provider", provider.Info())
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	player := provider.Player()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("provider connection lost", "error", err, "provider", provider.Info())
			}
			return
		}
		switch mt {
		case websocket.BinaryMessage:
			song, err := models.DecodeSong(data)
			if err != nil {
				slog.Warn("bad song payload", "error", err, "provider", provider.Info())
				continue
			}
			player.SetSong(song)
		case websocket.TextMessage:
			var cmd command
			if err := json.Unmarshal(data, &cmd); err != nil {
				slog.Warn("bad command", "error", err, "provider", provider.Info())
				continue
			}
			if err := cmd.apply(player); err != nil {
				slog.Warn("bad command", "error", err, "op", cmd.Op, "provider", provider.Info())
			}
		}
	}
}

func (s *Server) subscriberFunc(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	info := models.SubscriberInfo{
		PackageName: q.Get("package"),
		ProcessName: q.Get("process"),
	}
	session := uuid.NewString()
	l := newRemoteListener(session)
	_, err := s.subscribers.Register(info, l)
	if err != nil {
		http.Error(w, err.Error(), registerStatus(err))
		return
	}
	defer s.subscribers.Unregister(&info)
	defer l.close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade", "error", err, "subscriber", &info)
		return
	}
	defer conn.Close()
	slog.Info("subscriber connected", "subscriber", &info, "session", session)

	go l.writeLoop(conn)

	// only control frames are expected; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slog.Info("subscriber disconnected", "subscriber", &info, "session", session)
			return
		}
	}
}
