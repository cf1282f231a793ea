package openlibrary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// DefaultDumpURL is the latest editions dump published by Open Library
	DefaultDumpURL = "https://openlibrary.org/data/ol_dump_editions_latest.txt.gz"

	DefaultCacheDir = "~/.cache/lccn-resolver"
)

// DownloadConfig configures dump downloading
type DownloadConfig struct {
	URL           string
	CacheDir      string
	ForceDownload bool
}

// Downloader fetches and caches the editions dump
type Downloader struct {
	config     DownloadConfig
	httpClient *http.Client
}

// NewDownloader creates a new dump downloader
func NewDownloader(config DownloadConfig, httpClient *http.Client) *Downloader {
	if config.URL == "" {
		config.URL = DefaultDumpURL
	}
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}
	config.CacheDir = expandHome(config.CacheDir)
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Downloader{
		config:     config,
		httpClient: httpClient,
	}
}

// CachePath returns where the dump is (or will be) cached
func (d *Downloader) CachePath() string {
	name := path.Base(d.config.URL)
	if name == "" || name == "." || name == "/" {
		name = "ol_dump_editions_latest.txt.gz"
	}
	return filepath.Join(d.config.CacheDir, name)
}

// Download returns the cached dump, fetching it first if it is missing or a
// forced download was requested
func (d *Downloader) Download(ctx context.Context) (string, error) {
	if err := os.MkdirAll(d.config.CacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	cachedPath := d.CachePath()
	if !d.config.ForceDownload {
		if _, err := os.Stat(cachedPath); err == nil {
			slog.Info("Using cached dump", "path", cachedPath)
			return cachedPath, nil
		}
	}

	slog.Info("Downloading editions dump", "url", d.config.URL, "path", cachedPath)
	if err := d.downloadFile(ctx, d.config.URL, cachedPath); err != nil {
		return "", fmt.Errorf("failed to download dump: %w", err)
	}

	slog.Info("Dump downloaded successfully", "path", cachedPath)
	return cachedPath, nil
}

// downloadFile streams url into destPath via a temporary file
func (d *Downloader) downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	progress := &progressWriter{total: resp.ContentLength}
	_, err = io.Copy(io.MultiWriter(out, progress), resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}

// progressWriter logs download progress every 100MB
type progressWriter struct {
	total      int64
	downloaded int64
	nextLog    int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.downloaded += int64(len(b))
	if p.downloaded >= p.nextLog {
		attrs := []any{"downloaded_mb", p.downloaded / (1024 * 1024)}
		if p.total > 0 {
			attrs = append(attrs,
				"total_mb", p.total/(1024*1024),
				"progress", fmt.Sprintf("%.1f%%", float64(p.downloaded)/float64(p.total)*100))
		}
		slog.Debug("Download progress", attrs...)
		p.nextLog += 100 * 1024 * 1024
	}
	return len(b), nil
}

func expandHome(dir string) string {
	if !strings.HasPrefix(dir, "~") {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, dir[1:])
}
