// Package output persists translated pages: images, YAML metadata, optional
// debug overlays and an optional CBZ archive.
package output

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/page"
)

const (
	MetadataFile = "metadata.yaml"
	Suffix       = "_translated"
)

// Options configures a Writer.
type Options struct {
	Dir         string
	Format      string // png | jpg, empty keeps the source format
	JPEGQuality int
	DebugBoxes  bool
	Archive     string // CBZ path, empty disables the archive
	Version     string
}

// Writer saves pages as they complete. Write is safe for concurrent use;
// Close writes the metadata and the archive in page order.
type Writer struct {
	opts  Options
	mu    sync.Mutex
	pages []PageMeta
	files map[int]string
	taken map[string]bool // reserved output base names
}

// NewWriter creates the output directory.
func NewWriter(opts Options) (*Writer, error) {
	if opts.Dir == "" {
		opts.Dir = "output"
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 95
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{opts: opts, files: map[int]string{}, taken: map[string]bool{}}, nil
}

// Write saves the page image and records its metadata. Failed pages are still
// written with their original pixels.
func (w *Writer) Write(r page.Result) error {
	meta := PageMeta{
		Index:   r.Index,
		Name:    r.Name,
		Bubbles: r.Bubbles,
		Dropped: r.Dropped,
	}
	if r.Err != nil {
		meta.Error = r.Err.Error()
	}
	for _, f := range r.FreeText {
		meta.FreeText = append(meta.FreeText, f.Box)
	}

	var path string
	if r.Image != nil {
		base := w.reserve(r)
		path = filepath.Join(w.opts.Dir, base+Suffix+w.extension(r.Ext))
		if err := w.encode(path, r.Image); err != nil {
			return fmt.Errorf("page %d: %w", r.Index, err)
		}
		meta.Output = filepath.Base(path)

		if w.opts.DebugBoxes {
			free := make([]geometry.Box, len(r.FreeText))
			for i, f := range r.FreeText {
				free[i] = f.Box
			}
			dbg := DebugOverlay(r.Image, r.Bubbles, free)
			if err := w.encode(filepath.Join(w.opts.Dir, "debug_"+base+".png"), dbg); err != nil {
				return fmt.Errorf("page %d debug: %w", r.Index, err)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages = append(w.pages, meta)
	if path != "" {
		w.files[r.Index] = path
	}
	return nil
}

// Close writes metadata.yaml and, if configured, the CBZ archive.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sort.Slice(w.pages, func(i, j int) bool { return w.pages[i].Index < w.pages[j].Index })
	meta := &Metadata{Version: w.opts.Version, Pages: w.pages}
	if err := WriteMetadata(meta, filepath.Join(w.opts.Dir, MetadataFile)); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if w.opts.Archive == "" {
		return nil
	}
	var files []string
	for _, p := range w.pages {
		if f, ok := w.files[p.Index]; ok {
			files = append(files, f)
		}
	}
	return WriteCBZ(w.opts.Archive, files)
}

// reserve returns a base name no other page of this writer uses. Pages from
// sources that differ only by extension, such as a.png and a.webp, would
// otherwise share one output file.
func (w *Writer) reserve(r page.Result) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	candidates := []string{r.Name}
	if ext := strings.TrimPrefix(strings.ToLower(r.Ext), "."); ext != "" {
		candidates = append(candidates, r.Name+"_"+ext)
	}
	candidates = append(candidates, fmt.Sprintf("%s_p%03d", r.Name, r.Index))

	for _, c := range candidates {
		if !w.taken[c] {
			w.taken[c] = true
			return c
		}
	}
	for n := 2; ; n++ {
		c := fmt.Sprintf("%s_p%03d_%d", r.Name, r.Index, n)
		if !w.taken[c] {
			w.taken[c] = true
			return c
		}
	}
}

// extension picks the output extension. WebP has no encoder, so such pages
// are written as PNG.
func (w *Writer) extension(src string) string {
	ext := strings.ToLower(src)
	switch strings.ToLower(w.opts.Format) {
	case "png":
		return ".png"
	case "jpg", "jpeg":
		return ".jpg"
	}
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return ext
	default:
		return ".png"
	}
}

func (w *Writer) encode(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: w.opts.JPEGQuality})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
