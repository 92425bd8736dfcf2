// Command scangw runs the scan gateway daemon: it accepts file submissions
// over the envelope protocol, hands each spooled file to the configured
// scanning engine and answers with a single verdict line.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"ftpscan/internal/config"
	"ftpscan/internal/logger"
	"ftpscan/scangw"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "scangw",
		Short:        "Scan gateway daemon",
		Long:         "scangw accepts file submissions over TCP, scans each one and replies with a verdict.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("scangw " + version)
		},
	})

	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.Init(&cfg.Log)
	if err != nil {
		return err
	}

	// Hot-reload the log level on config file edits; everything else
	// requires a restart
	if configPath != "" {
		_, err := config.Watch(configPath, func(event fsnotify.Event, next *config.Config) {
			log.WithField("file", event.Name).Info("config changed, applying log level")
			logger.SetLevel(log, next.Log.Level)
		})
		if err != nil {
			log.WithError(err).Warn("config watch unavailable")
		}
	}

	engine := buildEngine(cfg)

	gateway, err := scangw.NewGateway(cfg.Listen, engine,
		scangw.WithLogger(log),
		scangw.WithSpoolDir(cfg.SpoolDir),
		scangw.WithMaxFileSize(cfg.MaxFileSize),
		scangw.WithScanTimeout(cfg.ScanTimeout),
		scangw.WithIOTimeout(cfg.IOTimeout),
	)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- gateway.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		if err := gateway.Shutdown(); err != nil {
			log.WithError(err).Warn("shutdown error")
		}
		if err := <-errCh; !errors.Is(err, scangw.ErrGatewayClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func buildEngine(cfg *config.Config) scangw.Engine {
	if cfg.Engine.Kind == "clamd" {
		return scangw.NewClamdEngine(cfg.Engine.ClamdAddr)
	}
	return &scangw.ExecEngine{Binary: cfg.Engine.Binary, MaxFileSize: cfg.MaxFileSize}
}
