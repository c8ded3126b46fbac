package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	v1 "github.com/pojntfx/tsctl/pkg/api/http/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	query  map[string][]string
	body   v1.ActionRequest
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Manager, *[]capturedRequest) {
	t.Helper()

	captured := []capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
		}
		if r.Header.Get("Content-Type") == "application/json" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&c.body))
		}
		captured = append(captured, c)

		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewManager(srv.URL, context.Background(), WithLocation(time.UTC)), &captured
}

func TestServerEndpoints(t *testing.T) {
	m, captured := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			_, _ = io.WriteString(w, "MatriX.131")
		case "/shutdown":
			_, _ = io.WriteString(w, "Shutting down")
		}
	})

	version, err := m.Server().Echo()
	require.NoError(t, err)
	assert.Equal(t, "MatriX.131", version)

	out, err := m.Server().Shutdown()
	require.NoError(t, err)
	assert.Equal(t, "Shutting down", out)

	require.Len(t, *captured, 2)
	assert.Equal(t, http.MethodGet, (*captured)[0].method)
	assert.Equal(t, "/echo", (*captured)[0].path)
	assert.Equal(t, http.MethodGet, (*captured)[1].method)
	assert.Equal(t, "/shutdown", (*captured)[1].path)
}

func TestPlaylistEndpoints(t *testing.T) {
	m, captured := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "#EXTM3U\n")
	})

	all, err := m.Playlists().All()
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", all)

	_, err = m.Playlists().ByHash("abc", false)
	require.NoError(t, err)

	_, err = m.Playlists().ByHash("abc", true)
	require.NoError(t, err)

	require.Len(t, *captured, 3)
	assert.Equal(t, "/playlistall/all.m3u", (*captured)[0].path)

	assert.Equal(t, "/playlist", (*captured)[1].path)
	assert.Equal(t, map[string][]string{"hash": {"abc"}}, (*captured)[1].query)

	assert.Equal(t, map[string][]string{"hash": {"abc"}, "fromlast": {"true"}}, (*captured)[2].query)
}

func TestTorrentActions(t *testing.T) {
	m, captured := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/torrents":
			_, _ = io.WriteString(w, `{"hash":"abc","title":"Movie"}`)
		case "/cache":
			_, _ = io.WriteString(w, `{"Hash":"abc","Capacity":1024}`)
		}
	})

	added, err := m.Torrents().Add("magnet:?xt=urn:btih:abc", AddOptions{Title: "Movie", Poster: "http://img", SaveToDB: true})
	require.NoError(t, err)
	assert.Equal(t, "abc", added["hash"])

	cache, err := m.Torrents().Cache("abc")
	require.NoError(t, err)
	assert.Equal(t, float64(1024), cache["Capacity"])

	_, err = m.Torrents().Delete("abc")
	require.NoError(t, err)

	require.Len(t, *captured, 3)

	assert.Equal(t, http.MethodPost, (*captured)[0].method)
	assert.Equal(t, "/torrents", (*captured)[0].path)
	assert.Equal(t, v1.ActionRequest{
		Action:   "add",
		Link:     "magnet:?xt=urn:btih:abc",
		Title:    "Movie",
		Poster:   "http://img",
		SaveToDB: true,
	}, (*captured)[0].body)

	assert.Equal(t, "/cache", (*captured)[1].path)
	assert.Equal(t, v1.ActionRequest{Action: "get", Hash: "abc"}, (*captured)[1].body)

	assert.Equal(t, "/torrents", (*captured)[2].path)
	assert.Equal(t, v1.ActionRequest{Action: "rem", Hash: "abc"}, (*captured)[2].body)
}

func TestListTorrents(t *testing.T) {
	m, captured := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "["+exampleRecord+"]")
	})

	torrents, err := m.Torrents().List()
	require.NoError(t, err)
	require.Len(t, torrents, 1)
	assert.Equal(t, "abc123", torrents[0].Hash)
	assert.Equal(t, time.UTC, torrents[0].Date.Location())

	raw, err := m.Torrents().Raw()
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "abc123", raw[0]["hash"])

	require.Len(t, *captured, 2)
	for _, c := range *captured {
		assert.Equal(t, "/torrents", c.path)
		assert.Equal(t, v1.ActionRequest{Action: "list"}, c.body)
	}
}

func TestListTorrentsRefetches(t *testing.T) {
	calls := 0
	m, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = io.WriteString(w, "["+exampleRecord+"]")

			return
		}

		_, _ = io.WriteString(w, "[]")
	})

	first, err := m.Torrents().List()
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := m.Torrents().List()
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 2, calls)
}

func TestUploadTorrent(t *testing.T) {
	type upload struct {
		title, poster, save string
		filename, content   string
	}

	var got upload
	m, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/torrent/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		got.title = r.FormValue("title")
		got.poster = r.FormValue("poster")
		got.save = r.FormValue("save")

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()

		content, err := io.ReadAll(f)
		require.NoError(t, err)

		got.filename = header.Filename
		got.content = string(content)

		_, _ = io.WriteString(w, `{"hash":"abc"}`)
	})

	path := filepath.Join(t.TempDir(), "movie.torrent")
	require.NoError(t, os.WriteFile(path, []byte("d4:infoe"), 0o644))

	out, err := m.Torrents().UploadFile(path, UploadOptions{Title: "Movie", Save: true})
	require.NoError(t, err)
	assert.Equal(t, "abc", out["hash"])

	assert.Equal(t, upload{
		title:    "Movie",
		poster:   "",
		save:     "true",
		filename: "movie.torrent",
		content:  "d4:infoe",
	}, got)
}

func TestUploadMissingFile(t *testing.T) {
	m := NewManager("http://127.0.0.1:1", context.Background())

	_, err := m.Torrents().UploadFile(filepath.Join(t.TempDir(), "missing.torrent"), DefaultUploadOptions)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatusError(t *testing.T) {
	m, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "torrent not found", http.StatusNotFound)
	})

	_, err := m.Torrents().Cache("missing")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "torrent not found", se.Body)

	_, err = m.Server().Echo()
	assert.True(t, errors.As(err, &se))
}

func TestMalformedJSON(t *testing.T) {
	m, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"hash":`)
	})

	_, err := m.Torrents().Add("magnet:?xt=urn:btih:abc", DefaultAddOptions)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, -1, de.Index)

	_, err = m.Torrents().Raw()
	assert.True(t, errors.As(err, &de))

	_, err = m.Torrents().List()
	assert.True(t, errors.As(err, &de))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	m := NewManager(host, context.Background())

	_, err := m.Server().Echo()
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.MethodGet, te.Method)
	assert.Equal(t, host+"/echo", te.URL)
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewManager(srv.URL, ctx).Torrents().List()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHostTrailingSlash(t *testing.T) {
	m, captured := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	m.host += "/"

	_, err := m.Server().Echo()
	require.NoError(t, err)
	assert.Equal(t, "/echo", (*captured)[0].path)
}
