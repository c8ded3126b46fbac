package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

type Option func(m *Manager)

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) {
		m.hc = hc
	}
}

// WithLocation sets the time zone torrent timestamps are converted into.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		m.loc = loc
	}
}

// Manager is a TorrServer client. It holds no state besides its
// configuration and is meant for sequential use.
type Manager struct {
	host string
	hc   *http.Client
	loc  *time.Location
	ctx  context.Context

	server    *ServerAPI
	playlists *PlaylistAPI
	torrents  *TorrentAPI
}

func NewManager(
	host string,
	ctx context.Context,
	opts ...Option,
) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}

	m := &Manager{
		host: host,
		hc:   &http.Client{},
		loc:  time.Local,
		ctx:  ctx,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.server = &ServerAPI{m}
	m.playlists = &PlaylistAPI{m}
	m.torrents = &TorrentAPI{m}

	return m
}

func (m *Manager) Server() *ServerAPI {
	return m.server
}

func (m *Manager) Playlists() *PlaylistAPI {
	return m.playlists
}

func (m *Manager) Torrents() *TorrentAPI {
	return m.torrents
}

func (m *Manager) endpoint(path string) string {
	return strings.TrimRight(m.host, "/") + "/" + path
}

func (m *Manager) get(path string, query url.Values) ([]byte, error) {
	endpoint := m.endpoint(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(m.ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, URL: endpoint, Err: err}
	}

	return m.do(req)
}

func (m *Manager) postJSON(path string, in interface{}) ([]byte, error) {
	endpoint := m.endpoint(path)

	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(m.ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Method: http.MethodPost, URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return m.do(req)
}

type formField struct {
	name  string
	value string
}

func (m *Manager) postMultipart(path string, fields []formField, filename string, file io.Reader) ([]byte, error) {
	endpoint := m.endpoint(path)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, err
		}
	}

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(m.ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, &TransportError{Method: http.MethodPost, URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return m.do(req)
}

func (m *Manager) do(req *http.Request) ([]byte, error) {
	log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Sending request")

	res, err := m.hc.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	if res.Body != nil {
		defer res.Body.Close()
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	log.Trace().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", res.StatusCode).
		Int("bytes", len(body)).
		Msg("Got response")

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Body:       excerpt(body),
		}
	}

	return body, nil
}

func decodeObject(body []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	return out, nil
}

func excerpt(body []byte) string {
	const max = 256

	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}

	return s
}
