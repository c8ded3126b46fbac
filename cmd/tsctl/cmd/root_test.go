package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/pojntfx/tsctl/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "-v", "0"))

	err := rootCmd.Execute()

	return out.String(), err
}

func openEmulator(t *testing.T) string {
	t.Helper()

	e := server.NewEmulator("127.0.0.1:0", "MatriX.cli", context.Background())
	require.NoError(t, e.Open())
	t.Cleanup(func() {
		_ = e.Close()
	})

	return "http://" + e.Addr()
}

func TestEcho(t *testing.T) {
	raddr := openEmulator(t)

	out, err := execute("echo", "-r", raddr)
	require.NoError(t, err)
	assert.Equal(t, "MatriX.cli\n", out)
}

func TestAddListDelete(t *testing.T) {
	raddr := openEmulator(t)

	out, err := execute("add", "-r", raddr, "--link", "magnet:?xt=urn:btih:c9e15763f722f23e98a29decdfae341b98d53056&dn=Sintel")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Sintel\n")

	out, err = execute("list", "-r", raddr, "--timezone", "UTC")
	require.NoError(t, err)
	assert.Contains(t, out, "hash: c9e15763f722f23e98a29decdfae341b98d53056\n")
	assert.Contains(t, out, "files: []\n")

	out, err = execute("list", "-r", raddr, "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "stat_string: Torrent working\n")

	_, err = execute("delete", "-r", raddr, "--hash", "c9e15763f722f23e98a29decdfae341b98d53056")
	require.NoError(t, err)

	out, err = execute("list", "-r", raddr, "--raw=false")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestUploadAndPlaylist(t *testing.T) {
	raddr := openEmulator(t)

	infoBytes, err := bencode.Marshal(metainfo.Info{
		Name:        "movie.mkv",
		PieceLength: 16384,
		Pieces:      make([]byte, 20),
		Length:      1000,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "movie.torrent")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, (&metainfo.MetaInfo{InfoBytes: infoBytes}).Write(f))
	require.NoError(t, f.Close())

	out, err := execute("upload", "-r", raddr, "--file", path, "--poster", "http://poster")
	require.NoError(t, err)
	assert.Contains(t, out, "title: movie.mkv\n")
	assert.Contains(t, out, "poster: http://poster\n")

	out, err = execute("playlist", "-r", raddr)
	require.NoError(t, err)
	assert.Contains(t, out, "#EXTINF:0,movie.mkv\n")
}

func TestMissingHash(t *testing.T) {
	_, err := execute("cache", "-r", "http://127.0.0.1:1", "--hash", "")
	assert.ErrorIs(t, err, errEmptyHash)
}

func TestInvalidTimezone(t *testing.T) {
	raddr := openEmulator(t)

	_, err := execute("list", "-r", raddr, "--timezone", "Not/AZone")
	assert.Error(t, err)
}
