package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	jsoniter "github.com/json-iterator/go"
	"github.com/phayes/freeport"
	v1 "github.com/pojntfx/tsctl/pkg/api/http/v1"
	"github.com/rs/zerolog/log"
)

const (
	statTorrentWorking = 3
	statStringWorking  = "Torrent working"

	maxUploadSize = 32 << 20
)

var (
	ErrEmptyHash        = errors.New("could not work with empty hash")
	ErrEmptyLink        = errors.New("could not work with empty link")
	ErrUnsupportedLink  = errors.New("only magnet links are supported")
	ErrUnknownAction    = errors.New("unknown action")
	ErrCouldNotFindHash = errors.New("could not find torrent with hash")
	ErrNoTorrentFile    = errors.New("could not find torrent file in upload")
	ErrAlreadyOpen      = errors.New("emulator is already open")
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

type entry struct {
	status v1.TorrentStatus

	pieceLength int64
	pieceCount  int
}

// Emulator is an in-memory server that speaks the TorrServer HTTP API.
// Magnet links never resolve to files; uploaded .torrent files do.
type Emulator struct {
	laddr   string
	version string

	now func() time.Time

	srv *http.Server
	lis net.Listener

	errs chan error

	ctx context.Context

	lock     sync.Mutex
	torrents []*entry
}

func NewEmulator(
	laddr string,
	version string,
	ctx context.Context,
) *Emulator {
	return &Emulator{
		laddr:   laddr,
		version: version,

		now: time.Now,

		errs: make(chan error, 1),

		ctx: ctx,
	}
}

func (e *Emulator) Open() error {
	log.Trace().Msg("Opening emulator")

	if e.srv != nil {
		return ErrAlreadyOpen
	}

	host, port, err := net.SplitHostPort(e.laddr)
	if err != nil {
		return err
	}

	if port == "" || port == "0" {
		p, err := freeport.GetFreePort()
		if err != nil {
			return err
		}

		port = strconv.Itoa(p)
	}

	lis, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	e.lis = lis

	mux := http.NewServeMux()

	mux.HandleFunc("/echo", e.handleEcho)
	mux.HandleFunc("/shutdown", e.handleShutdown)
	mux.HandleFunc("/torrents", e.handleTorrents)
	mux.HandleFunc("/torrent/upload", e.handleUpload)
	mux.HandleFunc("/cache", e.handleCache)
	mux.HandleFunc("/playlist", e.handlePlaylist)
	mux.HandleFunc("/playlistall/all.m3u", e.handlePlaylistAll)

	e.srv = &http.Server{Handler: mux}

	log.Debug().
		Str("address", lis.Addr().String()).
		Msg("Listening")

	go func() {
		if err := e.srv.Serve(lis); err != nil {
			if err == http.ErrServerClosed {
				close(e.errs)

				return
			}

			e.errs <- err

			return
		}
	}()

	return nil
}

// Addr returns the address the emulator is listening on.
func (e *Emulator) Addr() string {
	if e.lis == nil {
		return ""
	}

	return e.lis.Addr().String()
}

func (e *Emulator) Close() error {
	log.Trace().Msg("Closing emulator")

	if e.srv == nil {
		return nil
	}

	if err := e.srv.Shutdown(e.ctx); err != nil {
		if err != context.Canceled {
			return err
		}
	}

	return nil
}

func (e *Emulator) Wait() error {
	for err := range e.errs {
		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Emulator) fail(w http.ResponseWriter, err error, status int) {
	log.Debug().
		Err(err).
		Int("status", status).
		Msg("Rejecting request")

	http.Error(w, err.Error(), status)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().
			Err(err).
			Msg("Could not encode response")
	}
}

func (e *Emulator) handleEcho(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	_, _ = io.WriteString(w, e.version)
}

func (e *Emulator) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	log.Debug().Msg("Shutdown requested")

	_, _ = io.WriteString(w, "Shutting down")

	go func() {
		if err := e.Close(); err != nil {
			log.Error().
				Err(err).
				Msg("Could not shut down")
		}
	}()
}

func (e *Emulator) handleTorrents(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	req := v1.ActionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		e.fail(w, err, http.StatusBadRequest)

		return
	}

	log.Debug().
		Str("action", req.Action).
		Str("hash", req.Hash).
		Msg("Handling torrents action")

	switch req.Action {
	case v1.ActionList:
		writeJSON(w, e.list())

	case v1.ActionAdd:
		status, err := e.addMagnet(req)
		if err != nil {
			e.fail(w, err, http.StatusBadRequest)

			return
		}

		writeJSON(w, status)

	case v1.ActionRemove:
		if strings.TrimSpace(req.Hash) == "" {
			e.fail(w, ErrEmptyHash, http.StatusBadRequest)

			return
		}

		e.remove(req.Hash)

	case v1.ActionGet:
		t := e.find(req.Hash)
		if t == nil {
			e.fail(w, ErrCouldNotFindHash, http.StatusNotFound)

			return
		}

		writeJSON(w, t.status)

	default:
		e.fail(w, fmt.Errorf("%w: %v", ErrUnknownAction, req.Action), http.StatusBadRequest)
	}
}

func (e *Emulator) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		e.fail(w, err, http.StatusBadRequest)

		return
	}
	defer r.MultipartForm.RemoveAll()

	save, _ := strconv.ParseBool(r.FormValue("save"))

	var status *v1.TorrentStatus
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				e.fail(w, err, http.StatusBadRequest)

				return
			}

			mi, err := metainfo.Load(f)
			_ = f.Close()
			if err != nil {
				e.fail(w, err, http.StatusBadRequest)

				return
			}

			s, err := e.addMetaInfo(mi, r.FormValue("title"), r.FormValue("poster"), save)
			if err != nil {
				e.fail(w, err, http.StatusBadRequest)

				return
			}

			log.Debug().
				Str("filename", header.Filename).
				Str("hash", s.Hash).
				Msg("Uploaded torrent")

			if status == nil {
				status = &s
			}
		}
	}

	if status == nil {
		e.fail(w, ErrNoTorrentFile, http.StatusBadRequest)

		return
	}

	writeJSON(w, status)
}

func (e *Emulator) handleCache(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	req := v1.ActionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		e.fail(w, err, http.StatusBadRequest)

		return
	}

	if req.Action != v1.ActionGet {
		e.fail(w, fmt.Errorf("%w: %v", ErrUnknownAction, req.Action), http.StatusBadRequest)

		return
	}

	t := e.find(req.Hash)
	if t == nil {
		e.fail(w, ErrCouldNotFindHash, http.StatusNotFound)

		return
	}

	writeJSON(w, v1.CacheState{
		Hash:         t.status.Hash,
		Capacity:     t.status.TorrentSize,
		PiecesLength: t.pieceLength,
		PiecesCount:  t.pieceCount,
	})
}

func (e *Emulator) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	hash := r.URL.Query().Get("hash")
	if strings.TrimSpace(hash) == "" {
		e.fail(w, ErrEmptyHash, http.StatusBadRequest)

		return
	}

	t := e.find(hash)
	if t == nil {
		e.fail(w, ErrCouldNotFindHash, http.StatusNotFound)

		return
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, f := range t.status.FileStats {
		fmt.Fprintf(&b, "#EXTINF:0,%v\n", f.Path)
		fmt.Fprintf(&b, "http://%v/stream/%v?link=%v&index=%v&play\n", r.Host, url.PathEscape(lastSegment(f.Path)), t.status.Hash, f.ID)
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	_, _ = io.WriteString(w, b.String())
}

func (e *Emulator) handlePlaylistAll(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	e.lock.Lock()
	statuses := make([]v1.TorrentStatus, 0, len(e.torrents))
	for _, t := range e.torrents {
		statuses = append(statuses, t.status)
	}
	e.lock.Unlock()

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, s := range statuses {
		fmt.Fprintf(&b, "#EXTINF:0,%v\n", s.Title)
		fmt.Fprintf(&b, "http://%v/playlist?hash=%v\n", r.Host, s.Hash)
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	_, _ = io.WriteString(w, b.String())
}

func (e *Emulator) list() []v1.TorrentRecord {
	e.lock.Lock()
	defer e.lock.Unlock()

	records := []v1.TorrentRecord{}
	for _, t := range e.torrents {
		files := t.status.FileStats
		if files == nil {
			files = []v1.File{}
		}

		data, err := json.MarshalToString(v1.TorrentData{
			TorrServer: v1.TorrServerData{Files: files},
		})
		if err != nil {
			log.Error().
				Err(err).
				Str("hash", t.status.Hash).
				Msg("Could not encode torrent data")

			continue
		}

		records = append(records, v1.TorrentRecord{
			Title:       t.status.Title,
			Poster:      t.status.Poster,
			Hash:        t.status.Hash,
			Timestamp:   t.status.Timestamp,
			TorrentSize: t.status.TorrentSize,
			Stat:        t.status.Stat,
			StatString:  t.status.StatString,
			Data:        data,
		})
	}

	return records
}

func (e *Emulator) addMagnet(req v1.ActionRequest) (v1.TorrentStatus, error) {
	if strings.TrimSpace(req.Link) == "" {
		return v1.TorrentStatus{}, ErrEmptyLink
	}

	if !strings.HasPrefix(req.Link, "magnet:") {
		return v1.TorrentStatus{}, ErrUnsupportedLink
	}

	m, err := metainfo.ParseMagnetUri(req.Link)
	if err != nil {
		return v1.TorrentStatus{}, err
	}

	title := req.Title
	if title == "" {
		title = m.DisplayName
	}

	return e.upsert(&entry{
		status: v1.TorrentStatus{
			Title:  title,
			Poster: req.Poster,
			Hash:   m.InfoHash.HexString(),
		},
	}, req.SaveToDB), nil
}

func (e *Emulator) addMetaInfo(mi *metainfo.MetaInfo, title, poster string, save bool) (v1.TorrentStatus, error) {
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return v1.TorrentStatus{}, err
	}

	if title == "" {
		title = info.BestName()
	}

	files := []v1.File{}
	for i, f := range info.UpvertedFiles() {
		path := info.BestName()
		if len(f.Path) > 0 {
			path = strings.Join(append([]string{info.BestName()}, f.Path...), "/")
		}

		files = append(files, v1.File{
			ID:     int64(i + 1),
			Path:   path,
			Length: f.Length,
		})
	}

	return e.upsert(&entry{
		status: v1.TorrentStatus{
			Title:       title,
			Poster:      poster,
			Hash:        mi.HashInfoBytes().HexString(),
			TorrentSize: info.TotalLength(),
			FileStats:   files,
		},
		pieceLength: info.PieceLength,
		pieceCount:  info.NumPieces(),
	}, save), nil
}

// upsert stores t, replacing any entry with the same hash in place.
// Nothing is persisted, so save is only logged.
func (e *Emulator) upsert(t *entry, save bool) v1.TorrentStatus {
	e.lock.Lock()
	defer e.lock.Unlock()

	log.Debug().
		Str("hash", t.status.Hash).
		Bool("save", save).
		Msg("Adding torrent")

	t.status.Timestamp = e.now().Unix()
	t.status.Stat = statTorrentWorking
	t.status.StatString = statStringWorking

	for i, existing := range e.torrents {
		if existing.status.Hash == t.status.Hash {
			e.torrents[i] = t

			return t.status
		}
	}

	e.torrents = append(e.torrents, t)

	return t.status
}

func (e *Emulator) remove(hash string) {
	e.lock.Lock()
	defer e.lock.Unlock()

	for i, t := range e.torrents {
		if t.status.Hash == hash {
			e.torrents = append(e.torrents[:i], e.torrents[i+1:]...)

			return
		}
	}
}

func (e *Emulator) find(hash string) *entry {
	e.lock.Lock()
	defer e.lock.Unlock()

	for _, t := range e.torrents {
		if t.status.Hash == hash {
			c := *t

			return &c
		}
	}

	return nil
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}

	return path
}
