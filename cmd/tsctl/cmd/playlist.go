package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	hashFlag     = "hash"
	fromLastFlag = "from-last"
)

var playlistCmd = &cobra.Command{
	Use:     "playlist",
	Aliases: []string{"p"},
	Short:   "Get an m3u playlist of one or all torrents",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager, err := newManager(ctx)
		if err != nil {
			return err
		}

		var playlist string
		if hash := strings.TrimSpace(viper.GetString(hashFlag)); hash == "" {
			playlist, err = manager.Playlists().All()
		} else {
			playlist, err = manager.Playlists().ByHash(hash, viper.GetBool(fromLastFlag))
		}
		if err != nil {
			return err
		}

		printText(cmd, playlist)

		return nil
	},
}

func init() {
	playlistCmd.PersistentFlags().String(hashFlag, "", "Hash of the torrent to get the playlist for (all torrents if empty)")
	playlistCmd.PersistentFlags().Bool(fromLastFlag, false, "Skip files before the last viewed one")

	viper.AutomaticEnv()

	rootCmd.AddCommand(playlistCmd)
}
