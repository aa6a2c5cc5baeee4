// Package history merges freshly captured match-result tables with the
// previous capture so every row keeps the timestamp of its first
// observation.
package history

import (
	"encoding/csv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProvenanceColumn is the header of the first-observed timestamp column.
// Its presence is checked case-insensitively.
const ProvenanceColumn = "first_seen"

// naturalKeyColumns identify "the same observed event" independent of when
// or how many times it was scraped.
var naturalKeyColumns = []string{"competition", "home", "away", "score", "note"}

// Engine stamps captured rows with provenance timestamps. Merge is a pure
// function of its inputs.
type Engine struct{}

// Merge returns newCSV with a provenance column: rows whose natural key
// matches a previous row inherit that row's timestamp, all others are
// stamped with now. Row order and cardinality are preserved. An input that
// already carries the provenance column is returned unchanged, making the
// merge idempotent.
//
// Deliberate deviation from fail-fast: input that cannot be parsed as
// well-formed tabular data is returned unmodified instead of raising. An
// unpublished-but-intact artifact beats a blocked pipeline here.
func (Engine) Merge(newCSV, previousCSV string, now time.Time) string {
	headers, rows, err := parseTable(newCSV)
	if err != nil {
		zap.L().Warn("history: unparseable capture, passing through unmodified", zap.Error(err))
		return newCSV
	}
	if len(headers) == 0 {
		return newCSV
	}

	if columnIndex(headers, ProvenanceColumn) >= 0 {
		// Already stamped; merging again is a no-op.
		return newCSV
	}

	keyIdx, ok := keyIndices(headers)
	if !ok {
		zap.L().Warn("history: capture missing natural-key columns, passing through unmodified",
			zap.Strings("headers", headers))
		return newCSV
	}

	previous := previousTimestamps(previousCSV)

	outHeaders := stampedHeaders(headers, keyIdx)
	outRows := make([][]string, 0, len(rows))
	stamp := now.UTC().Format(time.RFC3339)
	for _, row := range rows {
		ts := stamp
		if prev, ok := previous[rowKey(row, keyIdx)]; ok {
			ts = prev
		}
		outRows = append(outRows, stampedRow(row, keyIdx, ts))
	}

	return writeTable(outHeaders, outRows)
}

// previousTimestamps extracts natural key -> first_seen from the prior
// capture. A missing or unparseable previous table yields no matches, so
// every new row gets stamped fresh.
func previousTimestamps(previousCSV string) map[string]string {
	if strings.TrimSpace(previousCSV) == "" {
		return nil
	}
	headers, rows, err := parseTable(previousCSV)
	if err != nil {
		zap.L().Warn("history: unparseable previous capture, treating as first capture", zap.Error(err))
		return nil
	}

	keyIdx, ok := keyIndices(headers)
	if !ok {
		return nil
	}
	tsIdx := columnIndex(headers, ProvenanceColumn)
	if tsIdx < 0 {
		return nil
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if tsIdx >= len(row) {
			continue
		}
		key := rowKey(row, keyIdx)
		// First occurrence wins for duplicate previous keys.
		if _, seen := out[key]; !seen {
			out[key] = row[tsIdx]
		}
	}
	return out
}

func parseTable(text string) ([]string, [][]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func writeTable(headers []string, rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(headers)
	_ = w.WriteAll(rows)
	w.Flush()
	return sb.String()
}

func columnIndex(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// keyIndices maps each natural-key column to its index in headers.
func keyIndices(headers []string) ([]int, bool) {
	idx := make([]int, len(naturalKeyColumns))
	for i, col := range naturalKeyColumns {
		j := columnIndex(headers, col)
		if j < 0 {
			return nil, false
		}
		idx[i] = j
	}
	return idx, true
}

func rowKey(row []string, keyIdx []int) string {
	parts := make([]string, len(keyIdx))
	for i, j := range keyIdx {
		if j < len(row) {
			parts[i] = row[j]
		}
	}
	return strings.Join(parts, "\x1f")
}

// stampedHeaders lays columns out as natural keys, then provenance, then
// the remaining descriptive columns in input order.
func stampedHeaders(headers []string, keyIdx []int) []string {
	out := make([]string, 0, len(headers)+1)
	out = append(out, naturalKeyColumns...)
	out = append(out, ProvenanceColumn)
	for i, h := range headers {
		if !contains(keyIdx, i) {
			out = append(out, h)
		}
	}
	return out
}

func stampedRow(row []string, keyIdx []int, ts string) []string {
	out := make([]string, 0, len(row)+1)
	for _, j := range keyIdx {
		if j < len(row) {
			out = append(out, row[j])
		} else {
			out = append(out, "")
		}
	}
	out = append(out, ts)
	for i, v := range row {
		if !contains(keyIdx, i) {
			out = append(out, v)
		}
	}
	return out
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
