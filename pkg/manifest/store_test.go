package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wdm0006/smudge/pkg/defect"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "manifest.db"))
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndRead(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	recs := []defect.Record{
		{Step: 2, Category: "negative_quantities", Kind: defect.KindNegate, Column: "Quantity", RowID: 5200, Before: "3", After: "-3"},
		{Step: 1, Category: "missing_order_ids", Kind: defect.KindNull, Column: "Order ID", RowID: 88, Before: "CA-2016-152156", AfterNull: true},
		{Step: 1, Category: "missing_order_ids", Kind: defect.KindNull, Column: "Order ID", RowID: 241, Before: "US-2015-108966", AfterNull: true},
	}
	run, err := s.Save(ctx, Run{Catalog: "superstore", Source: "prep.csv", Output: "activity.csv", Rows: 9994}, recs)
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == "" || run.Defects != 3 {
		t.Fatalf("run = %+v", run)
	}

	back, err := s.Records(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 3 || back[0].RowID != 88 || back[2].Step != 2 {
		t.Fatalf("records out of order: %+v", back)
	}
	if !back[0].AfterNull || back[0].BeforeNull || back[0].Before != "CA-2016-152156" {
		t.Fatalf("null handling lost: %+v", back[0])
	}

	counts, err := s.Counts(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts["missing_order_ids"] != 2 || counts["negative_quantities"] != 1 {
		t.Fatalf("counts = %v", counts)
	}

	got, err := s.Run(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows != 9994 || got.Catalog != "superstore" || !got.StartedAt.Equal(run.StartedAt) {
		t.Fatalf("run = %+v want %+v", got, run)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.Save(ctx, Run{ID: "old", Catalog: "c", StartedAt: old}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, Run{ID: "new", Catalog: "c", StartedAt: old.Add(time.Hour)}, nil); err != nil {
		t.Fatal(err)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "old" {
		t.Fatalf("runs = %+v", runs)
	}
	if _, err := s.Run(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Save(ctx, Run{ID: "old", Catalog: "c"}, nil); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
}
