// Package fetch acquires ITCH tape files: download into a cache
// directory, decompress gzip tapes next to the original, and hand the
// scanner a plain byte stream. Every step is skipped when its output
// already exists, so re-runs over the same tape cost nothing.
package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Fetch ensures the tape named by url exists locally, decompressed, and
// returns the path to the raw binary file. Partial downloads are written
// to a temp file and renamed only on success.
func Fetch(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	name := url[strings.LastIndexByte(url, '/')+1:]
	if name == "" {
		return "", fmt.Errorf("no file name in url %q", url)
	}
	path := filepath.Join(dir, name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("downloading %s", url)
		if err := download(ctx, url, path); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	} else {
		log.Printf("tape %s already cached", name)
	}

	if !strings.HasSuffix(path, ".gz") {
		return path, nil
	}
	return gunzip(path)
}

func download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// gunzip decompresses path into a sibling .bin file, skipping the work if
// the output already exists.
func gunzip(path string) (string, error) {
	out := strings.TrimSuffix(path, ".gz") + ".bin"
	if _, err := os.Stat(out); err == nil {
		log.Printf("tape already unpacked to %s", filepath.Base(out))
		return out, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	log.Printf("unpacking to %s", filepath.Base(out))

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	zr, err := gzip.NewReader(src)
	if err != nil {
		return "", fmt.Errorf("open gzip %s: %w", path, err)
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(out), ".unpack-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, zr); err != nil {
		tmp.Close()
		return "", fmt.Errorf("unpack %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", err
	}
	return out, nil
}

// Open opens a local tape for scanning, transparently decompressing
// when the path still carries a .gz suffix.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zerr := g.zr.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}
