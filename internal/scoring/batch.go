package scoring

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/netscore/internal/model"
)

// ReadURLs reads one URL per line, skipping blank lines.
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "scoring: read urls")
	}
	return urls, nil
}

// EvaluateBatch rates each URL in turn and returns the reports sorted by
// NetScore, highest first. Ties keep input order; unsupported URLs are
// dropped.
func EvaluateBatch(ctx context.Context, rater Rater, urls []string) []*model.ScoreReport {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("scoring: batch starting", zap.Int("urls", len(urls)))
	start := time.Now()

	reports := make([]*model.ScoreReport, 0, len(urls))
	skipped := 0
	for _, raw := range urls {
		if ctx.Err() != nil {
			log.Warn("scoring: batch cancelled", zap.Error(ctx.Err()))
			break
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		report, ok := rater.Evaluate(ctx, raw)
		if !ok {
			skipped++
			continue
		}
		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].NetScore > reports[j].NetScore
	})

	log.Info("scoring: batch complete",
		zap.Int("reports", len(reports)),
		zap.Int("skipped", skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reports
}
