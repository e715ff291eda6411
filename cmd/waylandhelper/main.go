package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/OShane-McKenzie/waylandhelper/internal/helper"
	"github.com/OShane-McKenzie/waylandhelper/internal/wayland"
)

var (
	socketPath string
	logLevel   string
)

const (
	controlDialAttempts = 10
	controlDialInterval = 100 * time.Millisecond
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "waylandhelper",
		Short: "Brokers a shared-memory layer-shell surface for an out-of-process renderer",
		Long: "waylandhelper owns a wlr-layer-shell surface and forwards input, " +
			"configure, and frame-pacing events to a rendering client over a " +
			"Unix control socket, while the client writes pixels directly into " +
			"a shared memory-mapped file.",
		RunE: run,
	}

	rootCmd.Flags().StringVar(&socketPath, "socket", "", "path to the client's listening control socket (required)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	_ = rootCmd.MarkFlagRequired("socket")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("waylandhelper exited with error")
	}
}

func run(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// The event loop is single-threaded and holds no locks (the Display and
	// Session types are not safe for concurrent access), so a caught signal
	// logs and exits directly rather than reaching across goroutines to
	// nudge the loop — there is no safe cross-goroutine handle to use.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Stringer("signal", sig).Msg("received signal, exiting")
		os.Exit(0)
	}()

	log.Info().Str("socket", socketPath).Msg("connecting to control socket")
	ctrlFD, err := helper.DialControlSocket(socketPath, controlDialAttempts, controlDialInterval)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect control socket")
		os.Exit(1)
	}

	display, err := wayland.Connect()
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to Wayland display")
		os.Exit(1)
	}
	defer display.Close()

	loop := helper.NewLoop(display, ctrlFD)
	if err := loop.Session().BindGlobals(); err != nil {
		log.Error().Err(err).Msg("failed to bind required Wayland globals")
		os.Exit(1)
	}

	if err := loop.Run(); err != nil {
		log.Error().Err(err).Msg("event loop exited with error")
		os.Exit(1)
	}

	log.Info().Msg("clean shutdown")
	return nil
}
