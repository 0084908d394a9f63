package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"clinstat/domain/core"
	"clinstat/domain/run"
	"clinstat/domain/stats"
	apperrors "clinstat/internal/errors"
)

// EntryKind tags the payload of an Entry
type EntryKind string

const (
	KindSummary           EntryKind = "summary"
	KindFrequency         EntryKind = "frequency"
	KindTest              EntryKind = "test"
	KindCorrelationMatrix EntryKind = "correlation_matrix"
	KindModel             EntryKind = "model"
)

// Stage names, in pipeline order
const (
	StageDescriptive  = "descriptive"
	StageBivariate    = "bivariate"
	StageMultivariate = "multivariate"
)

// Entry is one keyed analysis result. Exactly one payload is set, matching Kind.
type Entry struct {
	Key   string    `json:"key"`
	Kind  EntryKind `json:"kind"`
	Stage string    `json:"stage,omitempty"`

	Summary     *stats.SummaryStatistic      `json:"summary,omitempty"`
	Frequency   *stats.FrequencyTable        `json:"frequency,omitempty"`
	Test        *stats.TestResult            `json:"test,omitempty"`
	Correlation *stats.CorrelationMatrix     `json:"correlation,omitempty"`
	Model       *stats.RegressionModelResult `json:"model,omitempty"`
}

func SummaryEntry(key string, s stats.SummaryStatistic) Entry {
	return Entry{Key: key, Kind: KindSummary, Summary: &s}
}

func FrequencyEntry(key string, f stats.FrequencyTable) Entry {
	return Entry{Key: key, Kind: KindFrequency, Frequency: &f}
}

func TestEntry(key string, t stats.TestResult) Entry {
	return Entry{Key: key, Kind: KindTest, Test: &t}
}

func CorrelationEntry(key string, m stats.CorrelationMatrix) Entry {
	return Entry{Key: key, Kind: KindCorrelationMatrix, Correlation: &m}
}

func ModelEntry(key string, m stats.RegressionModelResult) Entry {
	return Entry{Key: key, Kind: KindModel, Model: &m}
}

// Validate checks that exactly the payload named by Kind is present
func (e Entry) Validate() error {
	if e.Key == "" {
		return apperrors.InvalidInput("report entry without a key")
	}
	set := 0
	for _, present := range []bool{e.Summary != nil, e.Frequency != nil, e.Test != nil, e.Correlation != nil, e.Model != nil} {
		if present {
			set++
		}
	}
	var match bool
	switch e.Kind {
	case KindSummary:
		match = e.Summary != nil
	case KindFrequency:
		match = e.Frequency != nil
	case KindTest:
		match = e.Test != nil
	case KindCorrelationMatrix:
		match = e.Correlation != nil
	case KindModel:
		match = e.Model != nil
	default:
		return apperrors.InvalidInput(fmt.Sprintf("report entry %q has unknown kind %q", e.Key, e.Kind))
	}
	if set != 1 || !match {
		return apperrors.InvalidInput(fmt.Sprintf("report entry %q of kind %s must carry exactly one matching payload", e.Key, e.Kind))
	}
	return nil
}

// Clone returns a deep copy
func (e Entry) Clone() Entry {
	if e.Summary != nil {
		s := *e.Summary
		e.Summary = &s
	}
	if e.Frequency != nil {
		f := e.Frequency.Clone()
		e.Frequency = &f
	}
	if e.Test != nil {
		t := e.Test.Clone()
		e.Test = &t
	}
	if e.Correlation != nil {
		c := e.Correlation.Clone()
		e.Correlation = &c
	}
	if e.Model != nil {
		m := e.Model.Clone()
		e.Model = &m
	}
	return e
}

// Report is the immutable union of every result of one run, keyed by analysis name
type Report struct {
	manifest *run.Manifest
	keys     []string
	entries  map[string]Entry
}

// New builds a report from validated entries in the given order
func New(manifest *run.Manifest, entries []Entry) (*Report, error) {
	r := &Report{
		manifest: manifest.Clone(),
		keys:     make([]string, 0, len(entries)),
		entries:  make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.entries[e.Key]; dup {
			return nil, apperrors.DuplicateAnalysisKey("analysis key %q produced twice", e.Key)
		}
		r.keys = append(r.keys, e.Key)
		r.entries[e.Key] = e.Clone()
	}
	return r, nil
}

// Manifest returns a copy of the run manifest
func (r *Report) Manifest() *run.Manifest {
	return r.manifest.Clone()
}

// RunID returns the run identifier, empty when the report has no manifest
func (r *Report) RunID() core.RunID {
	if r.manifest == nil {
		return ""
	}
	return r.manifest.RunID
}

// Keys returns analysis names in assembly order
func (r *Report) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of entries
func (r *Report) Len() int {
	return len(r.keys)
}

// Lookup returns a copy of the entry stored under key
func (r *Report) Lookup(key string) (Entry, bool) {
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.Clone(), true
}

// Entries returns copies of all entries in assembly order
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.entries[k].Clone()
	}
	return out
}

// EntriesOf returns copies of the entries of one kind in assembly order
func (r *Report) EntriesOf(kind EntryKind) []Entry {
	var out []Entry
	for _, k := range r.keys {
		if e := r.entries[k]; e.Kind == kind {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Test returns the test result stored under key
func (r *Report) Test(key string) (stats.TestResult, bool) {
	e, ok := r.Lookup(key)
	if !ok || e.Test == nil {
		return stats.TestResult{}, false
	}
	return *e.Test, true
}

// Model returns the regression result stored under key
func (r *Report) Model(key string) (stats.RegressionModelResult, bool) {
	e, ok := r.Lookup(key)
	if !ok || e.Model == nil {
		return stats.RegressionModelResult{}, false
	}
	return *e.Model, true
}

// Summary returns the summary statistic stored under key
func (r *Report) Summary(key string) (stats.SummaryStatistic, bool) {
	e, ok := r.Lookup(key)
	if !ok || e.Summary == nil {
		return stats.SummaryStatistic{}, false
	}
	return *e.Summary, true
}

// Content serializes the entries only, without the manifest. Two runs over the same
// dataset and plan produce identical content.
func (r *Report) Content() ([]byte, error) {
	return r.marshalResults()
}

// ContentHash fingerprints Content
func (r *Report) ContentHash() (core.Hash, error) {
	b, err := r.Content()
	if err != nil {
		return "", err
	}
	return core.NewHash(b), nil
}

// MarshalJSON writes {"manifest": ..., "results": {key: entry, ...}} with keys in assembly order
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"manifest":`)
	m, err := json.Marshal(r.manifest)
	if err != nil {
		return nil, err
	}
	buf.Write(m)
	buf.WriteString(`,"results":`)
	results, err := r.marshalResults()
	if err != nil {
		return nil, err
	}
	buf.Write(results)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Report) marshalResults() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		eb, err := json.Marshal(r.entries[k])
		if err != nil {
			return nil, fmt.Errorf("encode entry %q: %w", k, err)
		}
		buf.Write(eb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a report written by MarshalJSON, keeping the key order
func (r *Report) UnmarshalJSON(data []byte) error {
	var raw struct {
		Manifest *run.Manifest   `json:"manifest"`
		Results  json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var entries []Entry
	if len(raw.Results) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw.Results))
		if _, err := dec.Token(); err != nil {
			return err
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := tok.(string)
			if !ok {
				return fmt.Errorf("report results: expected key, got %v", tok)
			}
			var e Entry
			if err := dec.Decode(&e); err != nil {
				return fmt.Errorf("decode entry %q: %w", key, err)
			}
			e.Key = key
			entries = append(entries, e)
		}
	}

	built, err := New(raw.Manifest, entries)
	if err != nil {
		return err
	}
	*r = *built
	return nil
}
