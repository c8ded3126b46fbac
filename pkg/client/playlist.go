package client

import "net/url"

// PlaylistAPI groups the m3u playlist endpoints.
type PlaylistAPI struct {
	m *Manager
}

// All returns the stream links of every torrent as an m3u playlist.
func (p *PlaylistAPI) All() (string, error) {
	body, err := p.m.get("playlistall/all.m3u", nil)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// ByHash returns the stream links of one torrent as an m3u playlist.
// If fromLast is set, files before the last viewed one are left out.
func (p *PlaylistAPI) ByHash(hash string, fromLast bool) (string, error) {
	q := url.Values{}
	q.Set("hash", hash)
	if fromLast {
		q.Set("fromlast", "true")
	}

	body, err := p.m.get("playlist", q)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
