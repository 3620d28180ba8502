package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seantiz/loadlab/internal/model"
	"github.com/seantiz/loadlab/internal/store"
)

func seedLedger(t *testing.T) (string, *model.Job) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	items := 4
	jobs := []*model.Job{
		{ID: model.NewID(), Kind: model.KindBounded, Status: model.StatusCompleted, DurationMS: 100, CreatedAt: now, FinishedAt: now},
		{ID: model.NewID(), Kind: model.KindBatch, Status: model.StatusCompleted, DurationMS: 300, Items: &items, CreatedAt: now.Add(time.Second), FinishedAt: now.Add(time.Second)},
	}
	for _, j := range jobs {
		if err := db.CreateJob(context.Background(), j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}
	return path, jobs[1]
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestJobsCommandTable(t *testing.T) {
	path, batch := seedLedger(t)

	out := execute(t, "jobs", "--db", path, "--output", "table")

	if !strings.Contains(out, batch.ID) {
		t.Errorf("output missing job %s:\n%s", batch.ID, out)
	}
	if !strings.Contains(out, "Showing 2 of 2 jobs") {
		t.Errorf("output missing summary line:\n%s", out)
	}
}

func TestJobsShowCommandJSON(t *testing.T) {
	path, batch := seedLedger(t)

	out := execute(t, "jobs", "show", batch.ID, "--db", path, "--output", "json")

	var got model.Job
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.ID != batch.ID || got.Items == nil || *got.Items != 4 {
		t.Errorf("job = %+v, want %s with 4 items", got, batch.ID)
	}
}

func TestStatsCommandJSON(t *testing.T) {
	path, _ := seedLedger(t)

	out := execute(t, "stats", "--db", path, "--output", "json")

	var got struct {
		Total         int            `json:"total"`
		ByKind        map[string]int `json:"byKind"`
		AvgDurationMS float64        `json:"avgDurationMs"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Total != 2 {
		t.Errorf("total = %d, want 2", got.Total)
	}
	if got.ByKind[model.KindBatch] != 1 {
		t.Errorf("byKind[batch] = %d, want 1", got.ByKind[model.KindBatch])
	}
	if got.AvgDurationMS != 200 {
		t.Errorf("avgDurationMs = %v, want 200", got.AvgDurationMS)
	}
}
