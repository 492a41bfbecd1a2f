package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smugvault/internal/downloader"
	errs "smugvault/pkg/errors"
	"smugvault/pkg/inventory"
	"smugvault/pkg/planner"
	"smugvault/pkg/state"
)

func fixture(t *testing.T, diskFiles []string) (*inventory.Inventory, *state.Index, *planner.Plan) {
	t.Helper()
	root := t.TempDir()
	for _, rel := range diskFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	index := state.NewIndex(root, nil)
	if err := index.Scan(); err != nil {
		t.Fatal(err)
	}

	g := &inventory.Gallery{
		ID:         "a1",
		Name:       "Iceland",
		FolderPath: []string{"Travel"},
		Photos: []inventory.Photo{
			{ID: "p1", FileName: "one.jpg"},
			{ID: "p2", FileName: "two.jpg"},
		},
	}
	inv := &inventory.Inventory{Account: "alice", Galleries: []*inventory.Gallery{g}, FolderCount: 1}
	plan := &planner.Plan{GalleryDirs: map[string]string{"a1": "Travel/Iceland"}}
	return inv, index, plan
}

func doneResult(item planner.WorkItem, bytes int64) downloader.Result {
	return downloader.Result{Item: item, Status: downloader.StatusDone, Bytes: bytes}
}

func TestCleanRunExitsZero(t *testing.T) {
	inv, index, plan := fixture(t, []string{
		"Travel/Iceland/one.jpg",
		"Travel/Iceland/two.jpg",
		"Travel/Iceland/_gallery.yaml",
	})

	item := planner.WorkItem{
		Photo:   &inv.Galleries[0].Photos[0],
		Gallery: inv.Galleries[0],
		Action:  planner.ActionDownload,
		RelPath: "Travel/Iceland/one.jpg",
	}
	rep := Build(inv, index, plan, []downloader.Result{doneResult(item, 1024)}, time.Now(), nil)

	if !rep.Clean() {
		t.Errorf("expected clean report: %+v", rep)
	}
	if rep.ExitCode() != ExitOK {
		t.Errorf("exit = %d, want %d", rep.ExitCode(), ExitOK)
	}
	if rep.Totals.Downloaded != 1 || rep.Totals.Bytes != 1024 {
		t.Errorf("totals = %+v", rep.Totals)
	}
	if len(rep.Galleries) != 1 || !rep.Galleries[0].Match {
		t.Errorf("gallery validation = %+v", rep.Galleries)
	}
}

func TestCountMismatchIsDiscrepancy(t *testing.T) {
	// Only one of two expected photos is on disk.
	inv, index, plan := fixture(t, []string{"Travel/Iceland/one.jpg"})

	rep := Build(inv, index, plan, nil, time.Now(), nil)
	if rep.Discrepancies != 1 {
		t.Fatalf("discrepancies = %d, want 1", rep.Discrepancies)
	}
	gr := rep.Galleries[0]
	if gr.Match || gr.Expected != 2 || gr.Found != 1 {
		t.Errorf("gallery report = %+v", gr)
	}
	if rep.ExitCode() != ExitPartial {
		t.Errorf("exit = %d, want %d", rep.ExitCode(), ExitPartial)
	}
}

func TestReportedCountMismatchIsDiscrepancy(t *testing.T) {
	inv, index, plan := fixture(t, []string{
		"Travel/Iceland/one.jpg",
		"Travel/Iceland/two.jpg",
	})
	// API said four images but the listing only yielded two photos and one
	// video. One listing entry went missing.
	inv.Galleries[0].ReportedCount = 4
	inv.Galleries[0].VideoCount = 1

	rep := Build(inv, index, plan, nil, time.Now(), nil)
	gr := rep.Galleries[0]
	if !gr.CountMismatch {
		t.Fatalf("mismatch not flagged: %+v", gr)
	}
	if gr.Reported != 4 || gr.Videos != 1 {
		t.Errorf("listing counts not carried: %+v", gr)
	}
	if rep.Discrepancies != 1 {
		t.Errorf("discrepancies = %d, want 1", rep.Discrepancies)
	}
	if rep.ExitCode() != ExitPartial {
		t.Errorf("exit = %d, want %d", rep.ExitCode(), ExitPartial)
	}
}

func TestReportedCountAdjustedForExclusions(t *testing.T) {
	inv, index, plan := fixture(t, []string{
		"Travel/Iceland/one.jpg",
		"Travel/Iceland/two.jpg",
	})
	// Two photos, one video, one duplicate account for all four reported
	// entries, so the listing is consistent.
	inv.Galleries[0].ReportedCount = 4
	inv.Galleries[0].VideoCount = 1
	inv.Galleries[0].DuplicateCount = 1

	rep := Build(inv, index, plan, nil, time.Now(), nil)
	if rep.Galleries[0].CountMismatch {
		t.Errorf("video/duplicate-adjusted count wrongly flagged: %+v", rep.Galleries[0])
	}
	if rep.Discrepancies != 0 {
		t.Errorf("discrepancies = %d, want 0", rep.Discrepancies)
	}
}

func TestSidecarsExcludedFromCount(t *testing.T) {
	inv, index, plan := fixture(t, []string{
		"Travel/Iceland/one.jpg",
		"Travel/Iceland/one.jpg.yaml",
		"Travel/Iceland/two.jpg",
		"Travel/Iceland/two.jpg.yaml",
		"Travel/Iceland/_gallery.yaml",
	})

	rep := Build(inv, index, plan, nil, time.Now(), nil)
	if rep.Galleries[0].Found != 2 {
		t.Errorf("found = %d, want 2 (sidecars excluded)", rep.Galleries[0].Found)
	}
}

func TestIncompleteGalleryNotADiscrepancy(t *testing.T) {
	inv, index, plan := fixture(t, nil)
	inv.Galleries[0].Incomplete = true
	inv.Galleries[0].IncompleteReason = "listing failed"
	inv.Incomplete = []inventory.IncompleteSubtree{{Path: "Travel/Iceland", Reason: "listing failed"}}

	rep := Build(inv, index, plan, nil, time.Now(), nil)
	if rep.Discrepancies != 0 {
		t.Errorf("incomplete gallery counted as discrepancy")
	}
	if rep.Clean() {
		t.Error("incomplete subtree should still make the run non-clean")
	}
	if rep.ExitCode() != ExitPartial {
		t.Errorf("exit = %d, want %d", rep.ExitCode(), ExitPartial)
	}
}

func TestFailedAndUnattemptedItems(t *testing.T) {
	inv, index, plan := fixture(t, nil)
	item := planner.WorkItem{
		Photo:   &inv.Galleries[0].Photos[0],
		Gallery: inv.Galleries[0],
		Action:  planner.ActionDownload,
		RelPath: "Travel/Iceland/one.jpg",
	}
	skipped := planner.WorkItem{
		Photo:   &inv.Galleries[0].Photos[1],
		Gallery: inv.Galleries[0],
		Action:  planner.ActionDownload,
		RelPath: "Travel/Iceland/two.jpg",
	}
	results := []downloader.Result{
		{Item: item, Status: downloader.StatusFailed, Err: errs.New(errs.ErrorTypeNetwork, "gone"), Attempts: 3},
		{Item: skipped, Status: downloader.StatusSkippedItem},
	}

	abort := errs.New(errs.ErrorTypeAuth, "token revoked")
	rep := Build(inv, index, plan, results, time.Now(), abort)

	if !rep.Aborted || rep.AbortReason == "" {
		t.Error("abort not recorded")
	}
	if rep.ExitCode() != ExitFatal {
		t.Errorf("exit = %d, want %d", rep.ExitCode(), ExitFatal)
	}
	if rep.Totals.Failed != 1 || rep.Totals.Unattempted != 1 {
		t.Errorf("totals = %+v", rep.Totals)
	}
	if len(rep.Failed) != 2 {
		t.Fatalf("failed items = %d, want 2", len(rep.Failed))
	}
	if rep.Failed[0].Attempts != 3 || rep.Failed[1].Skipped != true {
		t.Errorf("failed items = %+v", rep.Failed)
	}
}

func TestSaveWritesValidJSON(t *testing.T) {
	inv, index, plan := fixture(t, nil)
	rep := Build(inv, index, plan, nil, time.Now(), errors.New("boom"))

	path := filepath.Join(t.TempDir(), "nested", "export-report.json")
	if err := rep.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Account != "alice" || !decoded.Aborted {
		t.Errorf("decoded = %+v", decoded)
	}
}
