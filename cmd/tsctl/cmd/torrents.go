package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/pojntfx/tsctl/pkg/client"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	rawFlag    = "raw"
	linkFlag   = "link"
	fileFlag   = "file"
	titleFlag  = "title"
	posterFlag = "poster"
	saveFlag   = "save"
)

var (
	errEmptyHash = errors.New("could not work with empty hash")
	errEmptyLink = errors.New("could not work with empty link")
	errEmptyFile = errors.New("could not work with empty file path")
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List torrents and their files",
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

		if viper.GetBool(rawFlag) {
			records, err := manager.Torrents().Raw()
			if err != nil {
				return err
			}

			return printYAML(cmd, records)
		}

		torrents, err := manager.Torrents().List()
		if err != nil {
			return err
		}

		return printYAML(cmd, torrents)
	},
}

var addCmd = &cobra.Command{
	Use:     "add",
	Aliases: []string{"a"},
	Short:   "Add a torrent by magnet, http or https link",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		link := strings.TrimSpace(viper.GetString(linkFlag))
		if link == "" {
			return errEmptyLink
		}

		opts := client.AddOptions{
			Title:    viper.GetString(titleFlag),
			Poster:   viper.GetString(posterFlag),
			SaveToDB: viper.GetBool(saveFlag),
		}

		if strings.HasPrefix(link, "magnet:") {
			m, err := metainfo.ParseMagnetUri(link)
			if err != nil {
				return err
			}

			log.Debug().
				Str("hash", m.InfoHash.HexString()).
				Str("name", m.DisplayName).
				Msg("Parsed magnet link")

			if opts.Title == "" {
				opts.Title = m.DisplayName
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager, err := newManager(ctx)
		if err != nil {
			return err
		}

		status, err := manager.Torrents().Add(link, opts)
		if err != nil {
			return err
		}

		return printYAML(cmd, status)
	},
}

var uploadCmd = &cobra.Command{
	Use:     "upload",
	Aliases: []string{"u"},
	Short:   "Upload a .torrent file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		path := strings.TrimSpace(viper.GetString(fileFlag))
		if path == "" {
			return errEmptyFile
		}

		mi, err := metainfo.LoadFromFile(path)
		if err != nil {
			return err
		}

		info, err := mi.UnmarshalInfo()
		if err != nil {
			return err
		}

		log.Debug().
			Str("hash", mi.HashInfoBytes().HexString()).
			Str("name", info.BestName()).
			Int64("length", info.TotalLength()).
			Msg("Parsed torrent file")

		opts := client.UploadOptions{
			Title:  viper.GetString(titleFlag),
			Poster: viper.GetString(posterFlag),
			Save:   viper.GetBool(saveFlag),
		}
		if opts.Title == "" {
			opts.Title = info.BestName()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager, err := newManager(ctx)
		if err != nil {
			return err
		}

		status, err := manager.Torrents().UploadFile(path, opts)
		if err != nil {
			return err
		}

		return printYAML(cmd, status)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"rm", "d"},
	Short:   "Remove a torrent",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		hash := strings.TrimSpace(viper.GetString(hashFlag))
		if hash == "" {
			return errEmptyHash
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager, err := newManager(ctx)
		if err != nil {
			return err
		}

		out, err := manager.Torrents().Delete(hash)
		if err != nil {
			return err
		}

		log.Info().
			Str("hash", hash).
			Msg("Removed torrent")

		printText(cmd, out)

		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Aliases: []string{"c"},
	Short:   "Get the cache state of a torrent",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		hash := strings.TrimSpace(viper.GetString(hashFlag))
		if hash == "" {
			return errEmptyHash
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager, err := newManager(ctx)
		if err != nil {
			return err
		}

		cache, err := manager.Torrents().Cache(hash)
		if err != nil {
			return err
		}

		return printYAML(cmd, cache)
	},
}

func init() {
	listCmd.PersistentFlags().Bool(rawFlag, false, "Print the records as returned by the server")

	addCmd.PersistentFlags().StringP(linkFlag, "l", "", "Magnet, http or https link of the torrent")
	addCmd.PersistentFlags().StringP(titleFlag, "t", "", "Title of the torrent (defaults to the magnet link's display name)")
	addCmd.PersistentFlags().StringP(posterFlag, "p", "", "Poster URL of the torrent")
	addCmd.PersistentFlags().Bool(saveFlag, true, "Save the torrent to the server's database")

	uploadCmd.PersistentFlags().StringP(fileFlag, "f", "", "Path to the .torrent file")
	uploadCmd.PersistentFlags().StringP(titleFlag, "t", "", "Title of the torrent (defaults to the torrent's name)")
	uploadCmd.PersistentFlags().StringP(posterFlag, "p", "", "Poster URL of the torrent")
	uploadCmd.PersistentFlags().Bool(saveFlag, true, "Save the torrent to the server's database")

	deleteCmd.PersistentFlags().String(hashFlag, "", "Hash of the torrent to remove")

	cacheCmd.PersistentFlags().String(hashFlag, "", "Hash of the torrent")

	viper.AutomaticEnv()

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(cacheCmd)
}
