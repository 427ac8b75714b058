// ABOUTME: Entry point for the onair-go listener
// ABOUTME: Loads config, discovers the relay server and runs the listener with the TUI
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/onair-go/internal/config"
	"github.com/Resonate-Protocol/onair-go/internal/discovery"
	"github.com/Resonate-Protocol/onair-go/internal/logging"
	"github.com/Resonate-Protocol/onair-go/internal/metrics"
	"github.com/Resonate-Protocol/onair-go/internal/statusserver"
	"github.com/Resonate-Protocol/onair-go/internal/ui"
	"github.com/Resonate-Protocol/onair-go/internal/version"
	"github.com/Resonate-Protocol/onair-go/pkg/archive"
	"github.com/Resonate-Protocol/onair-go/pkg/audio/output"
	"github.com/Resonate-Protocol/onair-go/pkg/onair"
	"github.com/Resonate-Protocol/onair-go/pkg/relay"
	"github.com/Resonate-Protocol/onair-go/pkg/sinks"
)

const discoveryTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	serverAddr := flag.String("server", cfg.Server, "Relay server address (skip mDNS)")
	name := flag.String("name", cfg.Name, "Listener display name")
	sink := flag.String("sink", cfg.Sink, "Sink: playback or file")
	codec := flag.String("codec", cfg.Codec, "Live stream codec: mp3, opus, flac or pcm")
	volume := flag.Int("volume", cfg.Volume, "Initial volume (0-100)")
	recordDir := flag.String("record-dir", cfg.RecordDir, "Recording directory for the file sink")
	archiveURL := flag.String("archive-url", cfg.ArchiveURL, "Archive base URL (empty disables the archive)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Status and metrics listen address (empty disables)")
	logFile := flag.String("log-file", "onair.log", "Log file path")
	noTUI := flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg.Server = *serverAddr
	cfg.Name = *name
	cfg.Sink = *sink
	cfg.Codec = *codec
	cfg.Volume = *volume
	cfg.RecordDir = *recordDir
	cfg.ArchiveURL = *archiveURL
	cfg.MetricsAddr = *metricsAddr
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	// TUI mode logs only to file
	var logOut io.Writer = f
	if !useTUI {
		logOut = io.MultiWriter(os.Stdout, f)
	}
	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat, logOut)

	logger.Info("Starting listener", "version", version.String(), "name", cfg.Name, "sink", cfg.Sink)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server == "" {
		logger.Info("Starting server discovery")
		discCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
		server, err := discovery.Discover(discCtx, discovery.Config{
			Logger: logging.WithComponent(logger, "discovery"),
		})
		cancel()
		if err != nil {
			logger.Error("No server found", "timeout", discoveryTimeout, "error", err)
			os.Exit(1)
		}
		cfg.Server = server.Addr()
		logger.Info("Discovered server", "name", server.Name, "addr", cfg.Server)
	}

	backend, closeBackend, err := newBackend(cfg, logging.WithComponent(logger, "sink"))
	if err != nil {
		logger.Error("Failed to create sink", "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	var archiveClient *archive.Client
	if cfg.ArchiveURL != "" {
		archiveClient, err = archive.NewClient(archive.Config{
			BaseURL: cfg.ArchiveURL,
			Logger:  logging.WithComponent(logger, "archive"),
		})
		if err != nil {
			logger.Error("Failed to create archive client", "error", err)
			os.Exit(1)
		}
	}

	var tui *ui.TUI

	listenerConfig := onair.Config{
		ServerAddr:        cfg.Server,
		Name:              cfg.Name,
		Backend:           backend,
		ReconnectInterval: cfg.ReconnectInterval,
		RefreshDelay:      cfg.RefreshDelay,
		MaxWriteRejects:   cfg.MaxWriteRejects,
		Logger:            logger,
		OnStatus: func(status onair.Status) {
			if tui != nil {
				tui.UpdateStatus(status)
			}
		},
		OnArchive: func(view archive.View) {
			if tui != nil {
				tui.UpdateArchive(view)
			}
		},
	}
	if archiveClient != nil {
		listenerConfig.Archive = archiveClient
	}

	listener, err := onair.New(listenerConfig)
	if err != nil {
		logger.Error("Failed to create listener", "error", err)
		os.Exit(1)
	}

	if cfg.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		if err := metrics.Register(reg, listener); err != nil {
			logger.Error("Failed to register metrics", "error", err)
			os.Exit(1)
		}
		srv := statusserver.New(cfg.MetricsAddr, listener, reg, logging.WithComponent(logger, "http"))
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("Status server failed", "error", err)
			}
		}()
	}

	if useTUI {
		vol, muted, volErr := listener.Volume()
		opts := ui.Options{
			Controller:      listener,
			Volume:          vol,
			Muted:           muted,
			VolumeSupported: volErr == nil,
		}
		if b := listener.Archive(); b != nil {
			opts.Archive = b
			opts.RecordingURL = archiveClient.RecordingURL
		}
		tui = ui.New(opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Run(ctx); err != nil {
			logger.Error("Listener failed", "error", err)
		}
	}()

	if tui != nil {
		go func() {
			<-ctx.Done()
			tui.Quit()
		}()
		if err := tui.Run(); err != nil {
			logger.Error("TUI failed", "error", err)
		}
		logger.Info("Received quit signal from TUI")
		cancel()
	} else {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}

	wg.Wait()
	logger.Info("Listener stopped")
}

// newBackend builds the configured sink and a func releasing its resources
func newBackend(cfg *config.Config, logger *slog.Logger) (relay.Backend, func(), error) {
	switch cfg.Sink {
	case config.SinkFile:
		fs, err := sinks.NewFile(sinks.FileConfig{
			Dir:    cfg.RecordDir,
			Format: cfg.Format(),
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil

	case config.SinkPlayback:
		out := output.NewOto(logger)
		pb, err := sinks.NewPlayback(sinks.PlaybackConfig{
			Format: cfg.Format(),
			Output: out,
			Volume: cfg.Volume,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		// Volume 0 reads as "unset" to the sink
		if cfg.Volume == 0 {
			pb.SetVolume(0)
		}
		return pb, func() {
			if err := out.Close(); err != nil {
				logger.Debug("Failed to close audio output", "error", err)
			}
		}, nil
	}

	return nil, nil, errors.New("unknown sink " + cfg.Sink)
}
