package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/user/secscan/pkg/engine"
)

const (
	filePrefix      = "security-report-"
	timestampLayout = "20060102-150405"
	maxCollisions   = 100
)

// ErrReportWrite marks a report that could not be persisted. It is fatal to the run.
var ErrReportWrite = errors.New("report write failed")

// WriteError records the path that could not be written
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrReportWrite, e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrReportWrite, e.Err} }

// Writer persists scan reports as timestamp-suffixed JSON files
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter creates a writer for dir
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// FileName is the base name a report written at t would get.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timestampLayout) + ".json"
}

// Write creates the directory if needed and writes the report to a new
// file named after r.Timestamp, falling back to the writer's clock when the
// report carries none. Existing reports are never overwritten.
func (w *Writer) Write(r *engine.ScanReport) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", &WriteError{Path: w.Dir, Err: err}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", &WriteError{Path: w.Dir, Err: err}
	}

	stamp := r.Timestamp
	if stamp.IsZero() {
		now := time.Now
		if w.Now != nil {
			now = w.Now
		}
		stamp = now()
	}
	base := FileName(stamp)

	for i := 0; i < maxCollisions; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d.json", base[:len(base)-len(".json")], i)
		}
		path := filepath.Join(w.Dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &WriteError{Path: path, Err: err}
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			f.Close()
			return "", &WriteError{Path: path, Err: err}
		}
		if err := f.Close(); err != nil {
			return "", &WriteError{Path: path, Err: err}
		}
		return path, nil
	}
	return "", &WriteError{Path: filepath.Join(w.Dir, base), Err: fs.ErrExist}
}
