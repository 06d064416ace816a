package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
)

// DirSource replays image files from a directory in name order, looping
// forever. It stands in for a live camera in development and tests.
type DirSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

// NewDirSource scans dir for decodable images.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(files)

	return &DirSource{files: files}, nil
}

func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return img, nil
}

func (s *DirSource) Close() error { return nil }
