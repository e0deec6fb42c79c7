package publishers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"lyricon/models"
)

type FilePublisher struct {
	fd     *os.File
	format string
}

type FilePublisherOptions struct {
	Path   string
	Format string
}

// NewFilePublisher opens a file or a named pipe. A missing path ending in
// .pipe is created as a FIFO.
func NewFilePublisher(opt *FilePublisherOptions) (*FilePublisher, error) {
	if !filepath.IsAbs(opt.Path) {
		return nil, fmt.Errorf("%w: file path must be absolute", ErrBadOptions)
	}
	var fd *os.File
	path := filepath.Clean(opt.Path)
	stat, err := os.Stat(path)
	if err == nil {
		if stat.Mode().Type() == os.ModeNamedPipe {
			fd, err = os.OpenFile(path, os.O_RDWR, os.ModeNamedPipe)
		} else {
			fd, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
		}
	} else if strings.HasSuffix(path, ".pipe") {
		err = syscall.Mkfifo(path, 0644)
		if err != nil {
			return nil, err
		}
		fd, err = os.OpenFile(path, os.O_RDWR, os.ModeNamedPipe)
	} else {
		fd, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	}
	if err != nil {
		return nil, err
	}
	format := opt.Format
	if format == "" {
		format = "%s\n"
	}
	return &FilePublisher{
		fd:     fd,
		format: format,
	}, nil
}

func (*FilePublisher) ID() string {
	return FilePublisherID
}

func (p *FilePublisher) Send(frame *models.Frame) error {
	var txt string
	switch frame.Kind {
	case models.FrameClear:
		txt = ETX
	case models.FrameExit:
		txt = EOT
	default:
		txt = frame.String()
	}
	_, err := fmt.Fprintf(p.fd, p.format, txt)
	return err
}

func (p *FilePublisher) Exit() error {
	return p.fd.Close()
}
