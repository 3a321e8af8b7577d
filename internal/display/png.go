package display

import (
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"github.com/banshee-data/powerguard/internal/fsutil"
)

// PNGSink writes each presented frame to one PNG file, replacing it
// atomically so readers never see a partial image.
type PNGSink struct {
	fs   fsutil.FileSystem
	path string
}

// NewPNGSink writes frames to path on fs.
func NewPNGSink(fs fsutil.FileSystem, path string) *PNGSink {
	return &PNGSink{fs: fs, path: filepath.Clean(path)}
}

// Init implements hal.Initializer: the target directory must exist.
func (s *PNGSink) Init() error {
	dir := filepath.Dir(s.path)
	if dir == "." {
		return nil
	}
	if _, err := s.fs.Stat(dir); err != nil {
		return fmt.Errorf("frame directory: %w", err)
	}
	return nil
}

func (s *PNGSink) Present(frame *image.Gray) error {
	tmp := s.path + ".tmp"
	w, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := png.Encode(w, frame); err != nil {
		w.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return s.fs.Rename(tmp, s.path)
}
