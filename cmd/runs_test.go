package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Now()
	runs := []model.Run{
		{
			ID: "run-1", InputPath: "products.csv", KeyColumn: "barcode",
			Status:    model.RunStatusCompleted,
			Summary:   &model.RunSummary{Total: 10, Processed: 10, Resolved: 7, StoppedAt: -1},
			CreatedAt: now,
		},
		{
			ID: "run-2", InputPath: "more.csv", KeyColumn: "upc",
			Status:    model.RunStatusRunning,
			CreatedAt: now,
		},
	}

	var sb strings.Builder
	formatRunsList(&sb, runs)
	out := sb.String()

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "7")
	assert.Contains(t, out, "10/10")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "-", "a run without a summary shows placeholders")
}
