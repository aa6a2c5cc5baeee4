package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/predictops/tipsync/internal/model"
)

func TestReportExitCode(t *testing.T) {
	tests := []struct {
		name   string
		report *model.Report
		want   int
	}{
		{"all in sync", &model.Report{}, exitPass},
		{"discrepancies", &model.Report{HasDiscrepancies: true}, exitDiscrepancies},
		{"init wins over discrepancies", &model.Report{HasDiscrepancies: true, Init: true}, exitInit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reportExitCode(tt.report))
		})
	}
}

func TestPrintReport(t *testing.T) {
	report := &model.Report{
		Scope: "pool-a",
		Results: []model.EntityResult{
			{EntityKey: "m1", Classification: model.ClassInSync},
			{EntityKey: "m2", Classification: model.ClassMismatched, Detail: "local 2:1, external 1:1"},
		},
		Counts: map[model.Classification]int{
			model.ClassInSync:     1,
			model.ClassMismatched: 1,
		},
		HasDiscrepancies: true,
	}

	var sb strings.Builder
	printReport(&sb, report)
	out := sb.String()

	assert.Contains(t, out, "m1")
	assert.Contains(t, out, "MISMATCHED")
	assert.Contains(t, out, "local 2:1, external 1:1")
	assert.Contains(t, out, "in sync 1, mismatched 1")
}

func TestPrintReportInit(t *testing.T) {
	var sb strings.Builder
	printReport(&sb, &model.Report{Init: true, Counts: map[model.Classification]int{}})
	assert.Contains(t, sb.String(), "run predict first")
}
