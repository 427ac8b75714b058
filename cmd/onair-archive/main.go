// ABOUTME: Command-line browser for the broadcast archive
// ABOUTME: Searches recordings and downloads one by filename
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Resonate-Protocol/onair-go/internal/config"
	"github.com/Resonate-Protocol/onair-go/internal/logging"
	"github.com/Resonate-Protocol/onair-go/pkg/archive"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	baseURL := flag.String("archive-url", cfg.ArchiveURL, "Archive base URL")
	query := flag.String("q", "", "Search text matched against titles")
	sortKey := flag.String("sort", string(archive.DefaultSort), "Sort: date_desc, date_asc, title_asc or title_desc")
	download := flag.String("download", "", "Download the recording with this filename")
	out := flag.String("out", ".", "Download directory, or - for stdout")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Parse()

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if *baseURL == "" {
		log.Fatalf("No archive configured: set ONAIR_ARCHIVE_URL or -archive-url")
	}

	client, err := archive.NewClient(archive.Config{
		BaseURL: *baseURL,
		Logger:  logging.WithComponent(logger, "archive"),
	})
	if err != nil {
		log.Fatalf("Failed to create archive client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if *download != "" {
		if err := fetch(ctx, client, *download, *out); err != nil {
			log.Fatalf("Download failed: %v", err)
		}
		return
	}

	records, err := client.Search(ctx, *query, archive.ParseSortKey(*sortKey))
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No recordings")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTART\tDURATION\tTITLE\tFILE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Date, r.StartTime, archive.FormatDuration(r.Duration), r.Title, r.Filename)
	}
	_ = w.Flush()
}

func fetch(ctx context.Context, client *archive.Client, filename, dir string) error {
	var w io.Writer = os.Stdout
	path := "-"

	if dir != "-" {
		path = filepath.Join(dir, filename)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	n, err := client.Download(ctx, filename, w)
	if err != nil {
		if archive.IsNotFound(err) {
			return fmt.Errorf("no recording named %q", filename)
		}
		return err
	}

	if path != "-" {
		fmt.Fprintf(os.Stderr, "Saved %s (%d bytes)\n", path, n)
	}
	return nil
}
