package v1

import "time"

const (
	ActionList   = "list"
	ActionAdd    = "add"
	ActionRemove = "rem"
	ActionGet    = "get"
)

type File struct {
	ID     int64  `json:"id" yaml:"id"`
	Path   string `json:"path" yaml:"path"`
	Length int64  `json:"length" yaml:"length"`
}

// Torrent is a list entry after its nested data has been decoded.
type Torrent struct {
	Title       string    `json:"title" yaml:"title"`
	Poster      string    `json:"poster" yaml:"poster"`
	Files       []File    `json:"files" yaml:"files"`
	Date        time.Time `json:"date" yaml:"date"`
	Hash        string    `json:"hash" yaml:"hash"`
	TorrentSize int64     `json:"torrent_size" yaml:"torrent_size"`
}

// TorrentRecord is one element of the array returned by the list action.
// Data holds a JSON-encoded TorrentData.
type TorrentRecord struct {
	Title       string `json:"title"`
	Poster      string `json:"poster"`
	Hash        string `json:"hash"`
	Timestamp   int64  `json:"timestamp"`
	TorrentSize int64  `json:"torrent_size"`
	Stat        int    `json:"stat"`
	StatString  string `json:"stat_string"`
	Data        string `json:"data"`
}

type TorrentData struct {
	TorrServer TorrServerData `json:"TorrServer"`
}

type TorrServerData struct {
	Files []File `json:"Files"`
}

// TorrentStatus is returned by the add and upload endpoints.
type TorrentStatus struct {
	Title       string `json:"title"`
	Poster      string `json:"poster"`
	Hash        string `json:"hash"`
	Timestamp   int64  `json:"timestamp"`
	TorrentSize int64  `json:"torrent_size"`
	Stat        int    `json:"stat"`
	StatString  string `json:"stat_string"`
	FileStats   []File `json:"file_stats,omitempty"`
}

type CacheState struct {
	Hash         string `json:"Hash"`
	Capacity     int64  `json:"Capacity"`
	Filled       int64  `json:"Filled"`
	PiecesLength int64  `json:"PiecesLength"`
	PiecesCount  int    `json:"PiecesCount"`
}

type ListRequest struct {
	Action string `json:"action"`
}

type RemoveRequest struct {
	Action string `json:"action"`
	Hash   string `json:"hash"`
}

type AddRequest struct {
	Action   string `json:"action"`
	Link     string `json:"link"`
	Title    string `json:"title"`
	Poster   string `json:"poster"`
	SaveToDB bool   `json:"save_to_db"`
}

type CacheRequest struct {
	Action string `json:"action"`
	Hash   string `json:"hash"`
}

// ActionRequest is the union of all bodies accepted by the torrents and cache endpoints.
type ActionRequest struct {
	Action   string `json:"action"`
	Link     string `json:"link"`
	Hash     string `json:"hash"`
	Title    string `json:"title"`
	Poster   string `json:"poster"`
	SaveToDB bool   `json:"save_to_db"`
}
