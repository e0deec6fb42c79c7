package publishers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"lyricon/models"
)

type WebSocketPublisherClient struct {
	send chan []byte
	conn *websocket.Conn
}

// WebSocketPublisher pushes frames as JSON to every connected client. New
// clients get the last frame first; plain HTTP requests get it as text.
type WebSocketPublisher struct {
	broadcast chan []byte
	mu        sync.Mutex
	clients   map[*WebSocketPublisherClient]struct{}
	last      []byte
	server    *http.Server
	upgrader  websocket.Upgrader
}

type WebSocketPublisherOptions struct {
	Address string
}

func NewWebSocketPublisher(opt *WebSocketPublisherOptions) *WebSocketPublisher {
	p := newWebSocketPublisher()
	mux := http.NewServeMux()
	mux.HandleFunc("/", p.indexFunc)
	p.server = &http.Server{
		Addr:    opt.Address,
		Handler: mux,
	}
	go func() {
		err := p.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("websocket publisher stopped", "error", err, "address", opt.Address)
		}
	}()
	return p
}

func newWebSocketPublisher() *WebSocketPublisher {
	p := &WebSocketPublisher{
		broadcast: make(chan []byte, 1),
		clients:   make(map[*WebSocketPublisherClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
			Error:       func(http.ResponseWriter, *http.Request, int, error) {},
		},
	}
	go func() {
		for msg := range p.broadcast {
			p.mu.Lock()
			for c := range p.clients {
				select {
				case c.send <- msg:
				default:
				}
			}
			p.mu.Unlock()
		}
	}()
	return p
}

func (*WebSocketPublisher) ID() string {
	return WebSocketPublisherID
}

func (p *WebSocketPublisher) indexFunc(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(last)
		return
	}

	c := &WebSocketPublisherClient{
		send: make(chan []byte, 4),
		conn: conn,
	}

	p.mu.Lock()
	p.clients[c] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.clients, c)
		p.mu.Unlock()
		conn.Close()
	}()

	if last != nil {
		if err := conn.WriteMessage(websocket.TextMessage, last); err != nil {
			return
		}
	}
	for msg := range c.send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (p *WebSocketPublisher) Send(frame *models.Frame) error {
	msg, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.last = msg
	p.mu.Unlock()
	p.broadcast <- msg
	return nil
}

func (p *WebSocketPublisher) Exit() error {
	p.mu.Lock()
	for c := range p.clients {
		close(c.send)
		delete(p.clients, c)
	}
	p.mu.Unlock()
	close(p.broadcast)
	if p.server == nil {
		return nil
	}
	return p.server.Close()
}
