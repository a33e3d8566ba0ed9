// Package recorder captures admission traffic so it can be replayed
// against different limits later.
package recorder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Recorder captures traffic records for later replay.
// Thread-safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	records    []TrafficRecord
	writer     io.Writer // optional: stream records as they arrive
	maxRecords int
	dropped    int
}

// Options configures a Recorder.
type Options struct {
	// Writer, if set, receives every record as newline-delimited JSON.
	Writer io.Writer
	// MaxRecords bounds the in-memory buffer. Once full, the oldest
	// record is dropped for each new one. Zero means unbounded.
	MaxRecords int
}

// New creates a new Recorder. If w is non-nil, records are also
// written to w as newline-delimited JSON as they arrive.
func New(w io.Writer) *Recorder {
	return NewWithOptions(Options{Writer: w})
}

// NewWithOptions creates a Recorder from opts.
func NewWithOptions(opts Options) *Recorder {
	limit := opts.MaxRecords
	if limit < 0 {
		limit = 0
	}
	return &Recorder{
		writer:     opts.Writer,
		maxRecords: limit,
	}
}

// Record captures a single traffic record.
func (r *Recorder) Record(rec TrafficRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxRecords > 0 && len(r.records) >= r.maxRecords {
		copy(r.records, r.records[1:])
		r.records = r.records[:len(r.records)-1]
		r.dropped++
	}
	r.records = append(r.records, rec)

	if r.writer != nil {
		if err := json.NewEncoder(r.writer).Encode(rec); err != nil {
			return fmt.Errorf("streaming record: %w", err)
		}
	}
	return nil
}

// Records returns a copy of all recorded traffic.
func (r *Recorder) Records() []TrafficRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TrafficRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of recorded items.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Dropped returns how many records were evicted by MaxRecords.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// ExportJSON writes all records to the given writer as a JSON array.
func (r *Recorder) ExportJSON(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.records)
}

// ExportFile writes all records to a file as a JSON array.
func (r *Recorder) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.ExportJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadJSON reads traffic records from a JSON array.
func LoadJSON(r io.Reader) ([]TrafficRecord, error) {
	var records []TrafficRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadFile reads traffic records from a JSON file.
func LoadFile(path string) ([]TrafficRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadJSON(f)
}
