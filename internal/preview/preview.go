// Package preview builds local preview references for staged media.
package preview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"sync"

	"adda/internal/models"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// MaxThumbnailSize bounds the longer edge of a thumbnail.
	MaxThumbnailSize = 320
	thumbnailQuality = 75
	scheme           = "preview://"
)

// Store keeps generated thumbnails in memory, addressed by reference.
type Store struct {
	mu     sync.Mutex
	seq    int
	thumbs map[string][]byte
}

// NewStore creates an empty preview store.
func NewStore() *Store {
	return &Store{thumbs: make(map[string][]byte)}
}

// Preview returns a reference for f. Images that decode get a JPEG
// thumbnail retrievable with Thumbnail; other files get a bare reference.
func (s *Store) Preview(f models.MediaFile) (string, error) {
	s.mu.Lock()
	s.seq++
	ref := fmt.Sprintf("%s%d/%s", scheme, s.seq, f.Name)
	s.mu.Unlock()

	if models.MediaTypeFor(f.ContentType) != models.MediaTypeImage {
		return ref, nil
	}
	thumb, err := Thumbnail(f.Data, MaxThumbnailSize)
	if err != nil {
		// Undecodable images still get a reference.
		return ref, nil
	}

	s.mu.Lock()
	s.thumbs[ref] = thumb
	s.mu.Unlock()
	return ref, nil
}

// Thumbnail returns the stored thumbnail bytes for ref.
func (s *Store) Thumbnail(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.thumbs[ref]
	return b, ok
}

// Release drops the thumbnail for ref.
func (s *Store) Release(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.thumbs, ref)
}

// Reset drops every thumbnail.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thumbs = make(map[string][]byte)
}

// Thumbnail decodes data and re-encodes it as a JPEG whose longer edge is
// at most maxSize. Smaller images keep their dimensions.
func Thumbnail(data []byte, maxSize int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	dst := resizeToFit(src, maxSize)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxSize int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSize && h <= maxSize {
		return src
	}
	if w >= h {
		h = h * maxSize / w
		w = maxSize
	} else {
		w = w * maxSize / h
		h = maxSize
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
