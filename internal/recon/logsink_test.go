package recon

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/wutron/dlcoal/internal/model"
)

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)
	for i := 0; i < 3; i++ {
		rec := model.CandidateRecord{RunID: "r", Iter: i, Prob: model.LogProb(math.Inf(-1))}
		if err := sink.Log(rec); err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
	}

	sc := bufio.NewScanner(&buf)
	lines := 0
	for sc.Scan() {
		var rec model.CandidateRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if rec.Iter != lines || !math.IsInf(float64(rec.Prob), -1) {
			t.Fatalf("line %d: unexpected record %+v", lines, rec)
		}
		lines++
	}
	if lines != 3 {
		t.Fatalf("line count: got %d, want 3", lines)
	}
}

type failSink struct{}

func (failSink) Log(model.CandidateRecord) error { return errors.New("sink failed") }

func TestTeeSink(t *testing.T) {
	a := &collectSink{}
	b := &collectSink{}
	tee := TeeSink{a, b}
	if err := tee.Log(model.CandidateRecord{Iter: 1}); err != nil {
		t.Fatalf("tee log: %v", err)
	}
	if len(a.records) != 1 || len(b.records) != 1 {
		t.Fatalf("fan-out failed: %d, %d", len(a.records), len(b.records))
	}

	failing := TeeSink{failSink{}, a}
	if err := failing.Log(model.CandidateRecord{Iter: 2}); err == nil {
		t.Fatal("expected error from failing sink")
	}
	if len(a.records) != 1 {
		t.Fatal("later sink ran after a failure")
	}
}
