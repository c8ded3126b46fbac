package client

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	v1 "github.com/pojntfx/tsctl/pkg/api/http/v1"
)

var (
	// Keys must match exactly; unknown keys are ignored.
	exactJSON = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		CaseSensitive:          true,
	}.Froze()

	// Keys must match exactly and unknown keys are an error.
	strictJSON = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		CaseSensitive:          true,
		DisallowUnknownFields:  true,
	}.Froze()
)

type rawRecord struct {
	Title       *string `json:"title"`
	Poster      *string `json:"poster"`
	Hash        *string `json:"hash"`
	Timestamp   *int64  `json:"timestamp"`
	TorrentSize *int64  `json:"torrent_size"`
	Data        *string `json:"data"`
}

type rawData struct {
	TorrServer *struct {
		Files *[]jsoniter.RawMessage `json:"Files"`
	} `json:"TorrServer"`
}

type rawFile struct {
	ID     *int64  `json:"id"`
	Path   *string `json:"path"`
	Length *int64  `json:"length"`
}

// DecodeTorrents decodes the body of a list response. Timestamps are
// converted into loc. Any malformed record fails the whole list.
func DecodeTorrents(body []byte, loc *time.Location) ([]v1.Torrent, error) {
	if loc == nil {
		loc = time.Local
	}

	var records []jsoniter.RawMessage
	if err := exactJSON.Unmarshal(body, &records); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}
	if records == nil {
		return nil, &DecodeError{Index: -1, Err: ErrNotAnArray}
	}

	torrents := make([]v1.Torrent, 0, len(records))
	for i, record := range records {
		torrent, err := decodeRecord(record, loc)
		if err != nil {
			err.Index = i

			return nil, err
		}

		torrents = append(torrents, torrent)
	}

	return torrents, nil
}

func decodeRecord(record []byte, loc *time.Location) (v1.Torrent, *DecodeError) {
	raw := rawRecord{}
	if err := exactJSON.Unmarshal(record, &raw); err != nil {
		return v1.Torrent{}, &DecodeError{Err: err}
	}

	hash := ""
	if raw.Hash != nil {
		hash = *raw.Hash
	}

	missing := func(field string) *DecodeError {
		return &DecodeError{Hash: hash, Field: field, Err: ErrMissingField}
	}

	switch {
	case raw.Title == nil:
		return v1.Torrent{}, missing("title")
	case raw.Poster == nil:
		return v1.Torrent{}, missing("poster")
	case raw.Data == nil:
		return v1.Torrent{}, missing("data")
	case raw.Timestamp == nil:
		return v1.Torrent{}, missing("timestamp")
	case raw.Hash == nil:
		return v1.Torrent{}, missing("hash")
	case raw.TorrentSize == nil:
		return v1.Torrent{}, missing("torrent_size")
	}

	files, field, err := decodeFiles(*raw.Data)
	if err != nil {
		return v1.Torrent{}, &DecodeError{Hash: hash, Field: field, Err: err}
	}

	return v1.Torrent{
		Title:       *raw.Title,
		Poster:      *raw.Poster,
		Files:       files,
		Date:        time.Unix(*raw.Timestamp, 0).In(loc),
		Hash:        hash,
		TorrentSize: *raw.TorrentSize,
	}, nil
}

// decodeFiles parses the JSON string held in a record's data field. On
// failure it also returns the path of the offending field.
func decodeFiles(data string) ([]v1.File, string, error) {
	nested := rawData{}
	if err := exactJSON.UnmarshalFromString(data, &nested); err != nil {
		return nil, "data", err
	}
	if nested.TorrServer == nil {
		return nil, "data.TorrServer", ErrMissingField
	}
	if nested.TorrServer.Files == nil {
		return nil, "data.TorrServer.Files", ErrMissingField
	}

	files := make([]v1.File, 0, len(*nested.TorrServer.Files))
	for i, rf := range *nested.TorrServer.Files {
		prefix := fmt.Sprintf("data.TorrServer.Files[%d]", i)

		raw := rawFile{}
		if err := strictJSON.Unmarshal(rf, &raw); err != nil {
			return nil, prefix, err
		}

		switch {
		case raw.ID == nil:
			return nil, prefix + ".id", ErrMissingField
		case raw.Path == nil:
			return nil, prefix + ".path", ErrMissingField
		case raw.Length == nil:
			return nil, prefix + ".length", ErrMissingField
		}

		files = append(files, v1.File{
			ID:     *raw.ID,
			Path:   *raw.Path,
			Length: *raw.Length,
		})
	}

	return files, "", nil
}
