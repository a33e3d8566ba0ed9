package recorder

import (
	"io"

	internalrecorder "github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
)

// TrafficRecord represents a single captured request.
type TrafficRecord = internalrecorder.TrafficRecord

// Recorder captures traffic records for later replay.
type Recorder = internalrecorder.Recorder

// Options configures a Recorder.
type Options = internalrecorder.Options

// New creates a new Recorder.
func New(w io.Writer) *Recorder {
	return internalrecorder.New(w)
}

// NewWithOptions creates a Recorder from opts.
func NewWithOptions(opts Options) *Recorder {
	return internalrecorder.NewWithOptions(opts)
}

// LoadJSON reads traffic records from a JSON array.
func LoadJSON(r io.Reader) ([]TrafficRecord, error) {
	return internalrecorder.LoadJSON(r)
}
