package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/netscore/internal/model"
)

// Output formats accepted by --format.
const (
	formatNDJSON = "ndjson"
	formatYAML   = "yaml"
	formatCSV    = "csv"
	formatTable  = "table"
)

var outputFormats = []string{formatNDJSON, formatYAML, formatCSV, formatTable}

// writeReports renders reports to w in the given format.
func writeReports(w io.Writer, format string, reports []*model.ScoreReport) error {
	switch format {
	case formatNDJSON, "":
		return writeNDJSON(w, reports)
	case formatYAML:
		return writeYAML(w, reports)
	case formatCSV:
		return writeCSV(w, reports)
	case formatTable:
		return writeTable(w, reports)
	default:
		return eris.Errorf("unknown output format %q (want one of %s)", format, strings.Join(outputFormats, ", "))
	}
}

// writeNDJSON writes one flat JSON object per line.
func writeNDJSON(w io.Writer, reports []*model.ScoreReport) error {
	enc := json.NewEncoder(w)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode report")
		}
	}
	return nil
}

func writeYAML(w io.Writer, reports []*model.ScoreReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode report")
		}
	}
	return eris.Wrap(enc.Close(), "close yaml encoder")
}

func writeCSV(w io.Writer, reports []*model.ScoreReport) error {
	cw := csv.NewWriter(w)
	for i, r := range reports {
		keys, values := r.Record()
		if i == 0 {
			if err := cw.Write(keys); err != nil {
				return eris.Wrap(err, "write csv header")
			}
		}
		if err := cw.Write(values); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "flush csv")
}

func writeTable(w io.Writer, reports []*model.ScoreReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"URL", "NetScore"}
	for _, name := range model.MetricNames {
		header = append(header, string(name))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range reports {
		row := []string{r.URL, fmt.Sprintf("%.2f", r.NetScore)}
		for _, name := range model.MetricNames {
			m, ok := r.Metric(name)
			switch {
			case !ok:
				row = append(row, "")
			case m.Failed():
				row = append(row, "-1")
			default:
				row = append(row, fmt.Sprintf("%.2f", m.Score))
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return eris.Wrap(tw.Flush(), "flush table")
}
