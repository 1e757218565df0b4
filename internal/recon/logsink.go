package recon

import (
	"encoding/json"
	"io"

	"github.com/wutron/dlcoal/internal/model"
)

// LogSink receives every scored candidate of a search run.
type LogSink interface {
	Log(rec model.CandidateRecord) error
}

// JSONLSink writes one JSON object per candidate.
type JSONLSink struct {
	enc *json.Encoder
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w)}
}

func (s *JSONLSink) Log(rec model.CandidateRecord) error {
	return s.enc.Encode(rec)
}

// NopSink discards candidates.
type NopSink struct{}

func (NopSink) Log(model.CandidateRecord) error { return nil }

// TeeSink fans a candidate out to several sinks, stopping at the
// first failure.
type TeeSink []LogSink

func (t TeeSink) Log(rec model.CandidateRecord) error {
	for _, s := range t {
		if err := s.Log(rec); err != nil {
			return err
		}
	}
	return nil
}
