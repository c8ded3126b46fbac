package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pojntfx/tsctl/pkg/client"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	verboseFlag  = "verbose"
	raddrFlag    = "raddr"
	timezoneFlag = "timezone"
)

var (
	errEmptyRemoteAddress = errors.New("could not work with empty remote address")
)

var rootCmd = &cobra.Command{
	Use:   "tsctl",
	Short: "Manage a TorrServer instance",
	Long: `List, add, upload and remove torrents and fetch playlists from a TorrServer instance.

The remote address can also be set using the RADDR env variable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix("")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		switch viper.GetInt(verboseFlag) {
		case 0:
			zerolog.SetGlobalLevel(zerolog.Disabled)
		case 1:
			zerolog.SetGlobalLevel(zerolog.PanicLevel)
		case 2:
			zerolog.SetGlobalLevel(zerolog.FatalLevel)
		case 3:
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		case 4:
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		case 5:
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		case 6:
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		default:
			zerolog.SetGlobalLevel(zerolog.TraceLevel)
		}

		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func newManager(ctx context.Context) (*client.Manager, error) {
	raddr := viper.GetString(raddrFlag)
	if strings.TrimSpace(raddr) == "" {
		return nil, errEmptyRemoteAddress
	}

	loc, err := time.LoadLocation(viper.GetString(timezoneFlag))
	if err != nil {
		return nil, err
	}

	return client.NewManager(raddr, ctx, client.WithLocation(loc)), nil
}

func printYAML(cmd *cobra.Command, v interface{}) error {
	y, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s", y)

	return nil
}

func printText(cmd *cobra.Command, s string) {
	if s == "" {
		return
	}

	fmt.Fprint(cmd.OutOrStdout(), s)
	if !strings.HasSuffix(s, "\n") {
		fmt.Fprintln(cmd.OutOrStdout())
	}
}

func init() {
	rootCmd.PersistentFlags().IntP(verboseFlag, "v", 5, "Verbosity level (0 is disabled, default is info, 7 is trace)")
	rootCmd.PersistentFlags().StringP(raddrFlag, "r", "http://localhost:8090", "Remote address of the TorrServer instance")
	rootCmd.PersistentFlags().String(timezoneFlag, "Local", "Time zone to convert torrent timestamps into (i.e. UTC or Europe/Berlin)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.AutomaticEnv()
}
