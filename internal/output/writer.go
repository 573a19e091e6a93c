// Package output persists generated dashboards as JSON files.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/wcatz/dashboard-generator/internal/dashboard"
	"github.com/wcatz/dashboard-generator/internal/errors"
)

// OversizeBytes is the artifact size above which Grafana imports get slow.
// Larger artifacts are still written, only flagged.
const OversizeBytes = 750_000

// Artifact describes one written (or, in dry-run mode, encoded) dashboard.
type Artifact struct {
	Path     string `json:"path"`
	Bytes    int    `json:"bytes"`
	Panels   int    `json:"panels"`
	Oversize bool   `json:"oversize,omitempty"`
	Written  bool   `json:"written"`
}

// Size is Bytes in human units.
func (a Artifact) Size() string {
	return humanize.Bytes(uint64(a.Bytes))
}

// Encode renders d as two-space indented JSON with a trailing newline.
// HTML characters are left unescaped so queries like a > 0 stay readable.
func Encode(d *dashboard.Dashboard) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrOutput,
			fmt.Sprintf("Failed to encode dashboard '%s'", d.Title), "")
	}
	return buf.Bytes(), nil
}

// Writer writes artifacts into one directory.
type Writer struct {
	fs     afero.Fs
	dir    string
	dryRun bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithDryRun makes Write encode and measure without touching the filesystem.
func WithDryRun(on bool) WriterOption {
	return func(w *Writer) {
		w.dryRun = on
	}
}

// NewWriter creates a Writer for dir on fs.
func NewWriter(fs afero.Fs, dir string, opts ...WriterOption) *Writer {
	w := &Writer{fs: fs, dir: dir}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir is the directory artifacts go to.
func (w *Writer) Dir() string {
	return w.dir
}

// Write encodes d and stores it as filename inside the writer's directory.
func (w *Writer) Write(filename string, d *dashboard.Dashboard) (Artifact, error) {
	data, err := Encode(d)
	if err != nil {
		return Artifact{}, err
	}

	a := Artifact{
		Path:     filepath.Join(w.dir, filename),
		Bytes:    len(data),
		Panels:   d.PanelCount(),
		Oversize: len(data) > OversizeBytes,
	}
	if w.dryRun {
		return a, nil
	}

	if err := w.fs.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return a, errors.WrapWithCode(err, errors.ErrOutput,
			fmt.Sprintf("Cannot create output directory %s", filepath.Dir(a.Path)),
			"Check that the path is writable or pass --output-dir")
	}
	if err := afero.WriteFile(w.fs, a.Path, data, 0o644); err != nil {
		return a, errors.WrapWithCode(err, errors.ErrOutput,
			fmt.Sprintf("Cannot write %s", a.Path),
			"Check that the output directory is writable")
	}
	a.Written = true
	return a, nil
}
