package client

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	v1 "github.com/pojntfx/tsctl/pkg/api/http/v1"
)

type UploadOptions struct {
	Title  string
	Poster string
	Save   bool
}

type AddOptions struct {
	Title    string
	Poster   string
	SaveToDB bool
}

var (
	DefaultUploadOptions = UploadOptions{Save: true}
	DefaultAddOptions    = AddOptions{SaveToDB: true}
)

// TorrentAPI groups the torrent management endpoints.
type TorrentAPI struct {
	m *Manager
}

// Upload sends the contents of a .torrent file to the server.
func (t *TorrentAPI) Upload(filename string, r io.Reader, opts UploadOptions) (map[string]interface{}, error) {
	body, err := t.m.postMultipart(
		"torrent/upload",
		[]formField{
			{"title", opts.Title},
			{"poster", opts.Poster},
			{"save", strconv.FormatBool(opts.Save)},
		},
		filename,
		r,
	)
	if err != nil {
		return nil, err
	}

	return decodeObject(body)
}

func (t *TorrentAPI) UploadFile(path string, opts UploadOptions) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return t.Upload(filepath.Base(path), f, opts)
}

// Raw returns the undecoded list of torrents.
func (t *TorrentAPI) Raw() ([]map[string]interface{}, error) {
	body, err := t.m.postJSON("torrents", v1.ListRequest{Action: v1.ActionList})
	if err != nil {
		return nil, err
	}

	out := []map[string]interface{}{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	return out, nil
}

// List fetches all torrents and decodes them, including their files.
// Nothing is cached; every call queries the server.
func (t *TorrentAPI) List() ([]v1.Torrent, error) {
	body, err := t.m.postJSON("torrents", v1.ListRequest{Action: v1.ActionList})
	if err != nil {
		return nil, err
	}

	return DecodeTorrents(body, t.m.loc)
}

func (t *TorrentAPI) Delete(hash string) (string, error) {
	body, err := t.m.postJSON("torrents", v1.RemoveRequest{
		Action: v1.ActionRemove,
		Hash:   hash,
	})
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// Add adds a torrent by magnet, http or https link.
func (t *TorrentAPI) Add(link string, opts AddOptions) (map[string]interface{}, error) {
	body, err := t.m.postJSON("torrents", v1.AddRequest{
		Action:   v1.ActionAdd,
		Link:     link,
		Title:    opts.Title,
		Poster:   opts.Poster,
		SaveToDB: opts.SaveToDB,
	})
	if err != nil {
		return nil, err
	}

	return decodeObject(body)
}

// Cache returns the cache state of a torrent.
func (t *TorrentAPI) Cache(hash string) (map[string]interface{}, error) {
	body, err := t.m.postJSON("cache", v1.CacheRequest{
		Action: v1.ActionGet,
		Hash:   hash,
	})
	if err != nil {
		return nil, err
	}

	return decodeObject(body)
}
