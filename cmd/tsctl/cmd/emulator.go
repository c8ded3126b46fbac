package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pojntfx/tsctl/pkg/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	laddrFlag         = "laddr"
	serverVersionFlag = "server-version"
)

var emulatorCmd = &cobra.Command{
	Use:   "emulator",
	Short: "Start an in-memory server that speaks the TorrServer API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		emulator := server.NewEmulator(
			viper.GetString(laddrFlag),
			viper.GetString(serverVersionFlag),
			ctx,
		)

		if err := emulator.Open(); err != nil {
			return err
		}

		s := make(chan os.Signal, 1)
		signal.Notify(s, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-s

			log.Debug().Msg("Gracefully shutting down")

			go func() {
				<-s

				log.Debug().Msg("Forcing shutdown")

				cancel()

				os.Exit(1)
			}()

			if err := emulator.Close(); err != nil {
				panic(err)
			}

			cancel()
		}()

		log.Info().
			Str("address", emulator.Addr()).
			Msg("Listening")

		return emulator.Wait()
	},
}

func init() {
	emulatorCmd.PersistentFlags().StringP(laddrFlag, "l", "localhost:8090", "Listening address (a port of 0 picks a free one)")
	emulatorCmd.PersistentFlags().String(serverVersionFlag, "MatriX.emulated", "Version string returned by the echo endpoint")

	viper.AutomaticEnv()

	rootCmd.AddCommand(emulatorCmd)
}
