// Package recorder implements the append-only columnar event log: a CSV
// file opened, written, and closed once per `Record` call so a crash
// mid-experiment never corrupts rows already on disk. The column layout
// is fixed-then-user: six built-in columns, the caller's info fields, the
// event code, then the caller's per-event columns.
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/psylab/cadence/internal/timeval"
)

// PsychVersion is the toolkit version stamped into every row's first
// column.
const PsychVersion = "cadence-0.1"

// fixedColumns are the six built-in columns, always first and always in
// this order.
var fixedColumns = []string{"psych_version", "start_date", "start_time", "offset", "trial", "time"}

// Recorder appends rows to a single CSV file, opening and closing it on
// every write. It is safe to use only from the control thread; the
// engine's realtime callback never touches it.
type Recorder struct {
	path        string
	infoKeys    []string
	info        map[string]string
	userColumns []string
	columns     []string

	startDate string
	startTime string

	logger *log.Logger
}

// New validates the requested user columns against the reserved set
// (fixed columns, info keys, and "code") and returns a Recorder ready for
// Start. info supplies experiment-wide metadata (subject id, condition,
// …) repeated on every row; userColumns are the event-specific fields
// later calls to Record may populate.
func New(path string, info map[string]string, userColumns []string) (*Recorder, error) {
	var infoKeys = make([]string, 0, len(info))
	for k := range info {
		infoKeys = append(infoKeys, k)
	}
	sort.Strings(infoKeys)

	var reserved = make(map[string]bool, len(fixedColumns)+len(infoKeys)+1)
	for _, c := range fixedColumns {
		reserved[c] = true
	}
	for _, c := range infoKeys {
		reserved[c] = true
	}
	reserved["code"] = true

	for _, c := range userColumns {
		if reserved[c] {
			return nil, fmt.Errorf("%w: %q", ErrReservedColumn, c)
		}
	}

	var columns = append(append([]string{}, fixedColumns...), infoKeys...)
	columns = append(columns, "code")
	columns = append(columns, userColumns...)

	return &Recorder{
		path:        path,
		infoKeys:    infoKeys,
		info:        info,
		userColumns: userColumns,
		columns:     columns,
		logger:      log.NewWithOptions(os.Stderr, log.Options{Prefix: "recorder"}),
	}, nil
}

// Start stamps the session's start_date/start_time and (re)creates path
// with just the header row. Call once at experiment start.
func (r *Recorder) Start(now time.Time) error {
	var dateStr, dateErr = strftime.Format("%Y-%m-%d", now)
	if dateErr != nil {
		return dateErr
	}

	var timeStr, timeErr = strftime.Format("%H:%M:%S", now)
	if timeErr != nil {
		return timeErr
	}

	r.startDate = dateStr
	r.startTime = timeStr

	var f, err = os.Create(r.path)
	if err != nil {
		return fmt.Errorf("recorder: open %s: %w", r.path, err)
	}
	defer f.Close()

	var w = csv.NewWriter(f)
	if err := w.Write(r.columns); err != nil {
		return fmt.Errorf("recorder: write header: %w", err)
	}
	w.Flush()

	r.logger.Info("opened recorder", "path", r.path, "columns", len(r.columns))

	return w.Error()
}

// Record appends exactly one row: the experiment's fixed fields, the info
// values, code, and the supplied per-event values. A value missing from
// values renders as an empty string; a key in values that isn't one of
// the userColumns declared to New fails with ErrUnknownColumn.
func (r *Recorder) Record(offset, trial int, now timeval.Time, code string, values map[string]string) error {
	var known = make(map[string]bool, len(r.userColumns))
	for _, c := range r.userColumns {
		known[c] = true
	}
	for k := range values {
		if !known[k] {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, k)
		}
	}

	var row = make([]string, 0, len(r.columns))
	row = append(row, PsychVersion, r.startDate, r.startTime,
		fmt.Sprintf("%d", offset), fmt.Sprintf("%d", trial), fmt.Sprintf("%.6f", now.Seconds()))

	for _, k := range r.infoKeys {
		row = append(row, r.info[k])
	}

	row = append(row, code)

	for _, c := range r.userColumns {
		row = append(row, values[c])
	}

	var f, err = os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: append %s: %w", r.path, err)
	}
	defer f.Close()

	var w = csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("recorder: write row: %w", err)
	}
	w.Flush()

	return w.Error()
}

// Columns returns the full, ordered header this Recorder writes.
func (r *Recorder) Columns() []string { return r.columns }
