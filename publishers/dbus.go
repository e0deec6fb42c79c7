package publishers

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"lyricon/models"
)

// DBusPublisher emits each frame as a signal carrying kind, text, secondary
// and translation.
type DBusPublisher struct {
	conn *dbus.Conn
	path dbus.ObjectPath
	name string
}

type DBusPublisherOptions struct {
	Path string
	Name string
}

// NewDBusPublisher emits on conn, which stays owned by the caller.
func NewDBusPublisher(conn *dbus.Conn, opt *DBusPublisherOptions) (*DBusPublisher, error) {
	path := dbus.ObjectPath(opt.Path)
	if !path.IsValid() || opt.Name == "" {
		return nil, fmt.Errorf("%w: invalid dbus path or signal name", ErrBadOptions)
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: no session bus", ErrBadOptions)
	}
	return &DBusPublisher{
		conn: conn,
		path: path,
		name: opt.Name,
	}, nil
}

func (*DBusPublisher) ID() string {
	return DBusPublisherID
}

func (p *DBusPublisher) Send(frame *models.Frame) error {
	return p.conn.Emit(p.path, p.name, frame.Kind.String(), frame.Text, frame.Secondary, frame.Translation)
}

func (*DBusPublisher) Exit() error {
	return nil
}
