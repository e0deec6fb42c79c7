package publishers

import (
	"errors"

	"lyricon/models"
)

const (
	FilePublisherID      = "file"
	HTTPPublisherID      = "http"
	WebSocketPublisherID = "websocket"
	DBusPublisherID      = "dbus"
)

// Control characters written by text sinks for clear and exit frames.
const (
	ETX = "\x03"
	EOT = "\x04"
)

var ErrBadOptions = errors.New("bad publisher options")

type Publisher interface {
	ID() string
	Send(*models.Frame) error
	Exit() error
}
