package publishers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lyricon/models"
)

type HTTPPublisher struct {
	method string
	url    string
	client *http.Client
}

type HTTPPublisherOptions struct {
	Method  string
	URL     string
	Timeout int // milli
}

func NewHTTPPublisher(opt *HTTPPublisherOptions) (*HTTPPublisher, error) {
	if opt.URL == "" {
		return nil, fmt.Errorf("%w: missing url", ErrBadOptions)
	}
	method := opt.Method
	if method == "" {
		method = http.MethodPost
	}
	timeout := time.Duration(opt.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPPublisher{
		method: method,
		url:    opt.URL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (*HTTPPublisher) ID() string {
	return HTTPPublisherID
}

func (p *HTTPPublisher) Send(frame *models.Frame) error {
	body, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	r, err := http.NewRequest(p.method, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("http publisher: %s", resp.Status)
	}
	return nil
}

func (p *HTTPPublisher) Exit() error {
	p.client.CloseIdleConnections()
	return nil
}
