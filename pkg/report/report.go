// Package report validates the finished export against the inventory and
// renders the run's outcome as JSON. Validation recounts files on disk
// through the state index; it never trusts the scheduler's bookkeeping alone.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"smugvault/internal/downloader"
	errs "smugvault/pkg/errors"
	"smugvault/pkg/inventory"
	"smugvault/pkg/planner"
	"smugvault/pkg/state"
)

// Exit codes for the sync command.
const (
	ExitOK int = iota
	// ExitFatal means the run aborted on a fatal error.
	ExitFatal
	// ExitPartial means the run finished but left failures, discrepancies,
	// or incomplete subtrees behind.
	ExitPartial
)

// GalleryReport compares one gallery's expected photo count with what is on
// disk after the run.
type GalleryReport struct {
	Path     string `json:"path"`
	Expected int    `json:"expected"`
	Found    int    `json:"found"`
	Match    bool   `json:"match"`

	// Reported is the image count the API advertised for the gallery.
	// Videos and Duplicates are listing entries excluded from Expected;
	// when Reported differs from Expected plus those exclusions the
	// listing itself is suspect and CountMismatch flags it.
	Reported      int  `json:"reported,omitempty"`
	Videos        int  `json:"videos,omitempty"`
	Duplicates    int  `json:"duplicates,omitempty"`
	CountMismatch bool `json:"count_mismatch,omitempty"`

	// Incomplete galleries are listed but never counted as discrepancies;
	// their expected totals are not authoritative.
	Incomplete       bool   `json:"incomplete,omitempty"`
	IncompleteReason string `json:"incomplete_reason,omitempty"`
}

// FailedItem records one photo that exhausted retries or was never attempted.
type FailedItem struct {
	Gallery  string `json:"gallery"`
	ImageKey string `json:"image_key"`
	Path     string `json:"path"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// Totals summarizes the run.
type Totals struct {
	Photos      int   `json:"photos"`
	Downloaded  int   `json:"downloaded"`
	MetaWritten int   `json:"meta_written"`
	Skipped     int   `json:"skipped"`
	Failed      int   `json:"failed"`
	Unattempted int   `json:"unattempted"`
	Bytes       int64 `json:"bytes"`
}

// Report is the full outcome of one export run.
type Report struct {
	Account    string    `json:"account"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Totals     Totals                        `json:"totals"`
	Galleries  []GalleryReport               `json:"galleries"`
	Failed     []FailedItem                  `json:"failed,omitempty"`
	Incomplete []inventory.IncompleteSubtree `json:"incomplete_subtrees,omitempty"`

	Aborted     bool   `json:"aborted"`
	AbortReason string `json:"abort_reason,omitempty"`

	Discrepancies int `json:"discrepancies"`
}

// Build assembles the report from the inventory, the plan, the scheduler's
// results, and a recount of the export tree. abortErr is the fatal error that
// stopped the run, nil for a run that drained its work list.
func Build(inv *inventory.Inventory, index *state.Index, plan *planner.Plan,
	results []downloader.Result, startedAt time.Time, abortErr error) *Report {

	rep := &Report{
		Account:    inv.Account,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Incomplete: inv.Incomplete,
	}
	rep.Totals.Photos = inv.Counts().Photos
	rep.Totals.Skipped = plan.Skipped

	if abortErr != nil {
		rep.Aborted = true
		rep.AbortReason = abortErr.Error()
	}

	for _, res := range results {
		switch res.Status {
		case downloader.StatusDone:
			if res.Item.Action == planner.ActionDownload {
				rep.Totals.Downloaded++
				rep.Totals.Bytes += res.Bytes
			} else {
				rep.Totals.MetaWritten++
			}
		case downloader.StatusFailed:
			rep.Totals.Failed++
			rep.Failed = append(rep.Failed, FailedItem{
				Gallery:  res.Item.Gallery.PathString(),
				ImageKey: res.Item.Photo.ID,
				Path:     res.Item.RelPath,
				Error:    errString(res.Err),
				Attempts: res.Attempts,
			})
		case downloader.StatusSkippedItem:
			rep.Totals.Unattempted++
			rep.Failed = append(rep.Failed, FailedItem{
				Gallery:  res.Item.Gallery.PathString(),
				ImageKey: res.Item.Photo.ID,
				Path:     res.Item.RelPath,
				Skipped:  true,
			})
		}
	}

	for _, gallery := range inv.Galleries {
		gr := GalleryReport{
			Path:       gallery.PathString(),
			Expected:   len(gallery.Photos),
			Found:      index.CountImages(plan.GalleryDirs[gallery.ID]),
			Reported:   gallery.ReportedCount,
			Videos:     gallery.VideoCount,
			Duplicates: gallery.DuplicateCount,
		}
		if gallery.Incomplete {
			gr.Incomplete = true
			gr.IncompleteReason = gallery.IncompleteReason
			gr.Match = true
		} else {
			gr.Match = gr.Found == gr.Expected
			if !gr.Match {
				rep.Discrepancies++
			}
			observed := gr.Expected + gr.Videos + gr.Duplicates
			if gr.Reported != 0 && observed != gr.Reported {
				gr.CountMismatch = true
				rep.Discrepancies++
			}
		}
		rep.Galleries = append(rep.Galleries, gr)
	}
	return rep
}

// Clean reports whether the run completed with nothing left to flag.
func (r *Report) Clean() bool {
	return !r.Aborted &&
		r.Totals.Failed == 0 &&
		r.Totals.Unattempted == 0 &&
		r.Discrepancies == 0 &&
		len(r.Incomplete) == 0
}

// ExitCode maps the report to the sync command's exit status.
func (r *Report) ExitCode() int {
	if r.Aborted {
		return ExitFatal
	}
	if !r.Clean() {
		return ExitPartial
	}
	return ExitOK
}

// Save writes the report as indented JSON via temp file and rename, so a
// crash mid-write never leaves a truncated report.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errs.Newf(errs.ErrorTypeParsing, "encoding report: %v", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Newf(errs.ErrorTypeFilesystem, "creating report directory: %v", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return errs.Newf(errs.ErrorTypeFilesystem, "creating temp report: %v", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return errs.Newf(errs.ErrorTypeFilesystem, "writing report: %v", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errs.Newf(errs.ErrorTypeFilesystem, "renaming report into place: %v", err)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
