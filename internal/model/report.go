package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Sentinel marks a metric that could not be computed.
const Sentinel = -1.0

// MetricName identifies one quality dimension.
type MetricName string

// Metric names, in report order.
const (
	RampUp                MetricName = "RampUp"
	Correctness           MetricName = "Correctness"
	BusFactor             MetricName = "BusFactor"
	ResponsiveMaintainer  MetricName = "ResponsiveMaintainer"
	License               MetricName = "License"
	PinnedDependencies    MetricName = "PinnedDependencies"
	PullRequestProvenance MetricName = "PullRequestProvenance"
)

// MetricNames lists every metric in the order it is emitted.
var MetricNames = []MetricName{
	RampUp,
	Correctness,
	BusFactor,
	ResponsiveMaintainer,
	License,
	PinnedDependencies,
	PullRequestProvenance,
}

// MetricOutcome is the result of one calculator. Score is in [0,1] or Sentinel.
type MetricOutcome struct {
	Name           MetricName
	Score          float64
	LatencySeconds float64
}

// Failed reports whether the metric could not be computed.
func (m MetricOutcome) Failed() bool {
	return m.Score == Sentinel
}

// ScoreReport is the evaluation of a single input URL.
type ScoreReport struct {
	URL                    string
	NetScore               float64
	NetScoreLatencySeconds float64
	Metrics                []MetricOutcome
}

// Metric returns the outcome for name.
func (r *ScoreReport) Metric(name MetricName) (MetricOutcome, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricOutcome{}, false
}

// Scores returns metric scores keyed by name.
func (r *ScoreReport) Scores() map[MetricName]float64 {
	out := make(map[MetricName]float64, len(r.Metrics))
	for _, m := range r.Metrics {
		out[m.Name] = m.Score
	}
	return out
}

// FailedReport returns a report for url with every metric at Sentinel.
func FailedReport(url string) *ScoreReport {
	r := &ScoreReport{URL: url}
	for _, name := range MetricNames {
		r.Metrics = append(r.Metrics, MetricOutcome{Name: name, Score: Sentinel})
	}
	return r
}

// RoundScore rounds a score to two decimals. Sentinel is preserved.
func RoundScore(v float64) float64 {
	if v == Sentinel {
		return v
	}
	return math.Round(v*100) / 100
}

// RoundLatency rounds a latency to three decimals.
func RoundLatency(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// LatencyKey is the flat record key holding a metric's latency.
func LatencyKey(name string) string {
	return name + "_Latency"
}

type field struct {
	key   string
	value any
}

// fields flattens the report into record order.
func (r *ScoreReport) fields() []field {
	fs := []field{
		{"URL", r.URL},
		{"NetScore", r.NetScore},
		{LatencyKey("NetScore"), r.NetScoreLatencySeconds},
	}
	for _, m := range r.Metrics {
		fs = append(fs,
			field{string(m.Name), m.Score},
			field{LatencyKey(string(m.Name)), m.LatencySeconds},
		)
	}
	return fs
}

// MarshalJSON emits a single flat object with keys in record order.
func (r ScoreReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.key)
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal %s", f.key)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML emits a mapping node with keys in record order.
func (r ScoreReport) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r.fields() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.key}
		val := &yaml.Node{Kind: yaml.ScalarNode}
		switch v := f.value.(type) {
		case string:
			val.Tag, val.Value = "!!str", v
		case float64:
			val.Value = strconv.FormatFloat(v, 'f', -1, 64)
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// Record returns the flat keys and their text values in record order.
func (r *ScoreReport) Record() (keys, values []string) {
	for _, f := range r.fields() {
		keys = append(keys, f.key)
		switch v := f.value.(type) {
		case string:
			values = append(values, v)
		case float64:
			values = append(values, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return keys, values
}
