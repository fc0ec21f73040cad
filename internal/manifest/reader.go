// Package manifest parses the delimited input file describing which media
// items to fetch and how to trim them.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// ParseError describes a fatal manifest problem. No jobs are dispatched
// when the manifest fails to parse.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("manifest %s: line %d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("manifest %s: %s", e.Path, e.Msg)
}

// column indexes resolved from the header row
type columns struct {
	id    int
	start int
	end   int
	name  int
}

// Read parses the manifest at path into the ordered job list.
// The file is CSV with a header row; `id` is required, `start`, `end`
// (seconds or HH:MM:SS) and `name` are optional. Lines starting with '#'
// are skipped.
func Read(path string) ([]domain.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, &ParseError{Path: path, Msg: err.Error()}
	}

	if len(records) == 0 {
		return nil, &ParseError{Path: path, Msg: "empty manifest, header row required"}
	}

	cols, err := resolveColumns(path, records[0])
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(records)-1)
	seenDest := make(map[string]int)

	for i, record := range records[1:] {
		line := i + 2 // 1-based, after the header

		job, err := parseRow(path, line, cols, record)
		if err != nil {
			return nil, err
		}

		if prev, ok := seenDest[job.DestName]; ok {
			return nil, &ParseError{
				Path: path,
				Line: line,
				Msg:  fmt.Sprintf("destination %q collides with line %d", job.DestName, prev),
			}
		}
		seenDest[job.DestName] = line

		jobs = append(jobs, job)
	}

	return jobs, nil
}

func resolveColumns(path string, header []string) (columns, error) {
	cols := columns{id: -1, start: -1, end: -1, name: -1}

	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			cols.id = i
		case "start":
			cols.start = i
		case "end":
			cols.end = i
		case "name":
			cols.name = i
		}
	}

	if cols.id == -1 {
		return cols, &ParseError{Path: path, Line: 1, Msg: "required column \"id\" not found in header"}
	}
	return cols, nil
}

func parseRow(path string, line int, cols columns, record []string) (domain.Job, error) {
	field := func(idx int) string {
		if idx >= 0 && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	job := domain.Job{
		VideoID: field(cols.id),
		Row:     line,
	}
	if job.VideoID == "" {
		return job, &ParseError{Path: path, Line: line, Msg: "empty id"}
	}

	startRaw, endRaw := field(cols.start), field(cols.end)

	if endRaw != "" && startRaw == "" {
		return job, &ParseError{Path: path, Line: line, Msg: "end offset given without start offset"}
	}

	if startRaw != "" {
		start, err := parseOffset(startRaw)
		if err != nil {
			return job, &ParseError{Path: path, Line: line, Msg: fmt.Sprintf("bad start offset %q: %v", startRaw, err)}
		}

		end := start + domain.DefaultClipLength
		if endRaw != "" {
			end, err = parseOffset(endRaw)
			if err != nil {
				return job, &ParseError{Path: path, Line: line, Msg: fmt.Sprintf("bad end offset %q: %v", endRaw, err)}
			}
		}

		if end <= start {
			return job, &ParseError{Path: path, Line: line, Msg: fmt.Sprintf("end offset %s not after start offset %s", end, start)}
		}

		job.Start = start
		job.End = end
		job.Trimmed = true
	}

	job.DestName = field(cols.name)
	if job.DestName == "" {
		job.DestName = DefaultDestName(job)
	}

	return job, nil
}

// DefaultDestName returns the destination base name used when the manifest
// row has no name column: the bare id, or <id>_<start-ms>_<end-ms> for
// trimmed rows so different clips of one video do not collide.
func DefaultDestName(job domain.Job) string {
	if !job.Trimmed {
		return job.VideoID
	}
	return fmt.Sprintf("%s_%d_%d", job.VideoID, job.Start.Milliseconds(), job.End.Milliseconds())
}

// parseOffset accepts plain seconds ("90", "5.5") or clock notation
// (MM:SS, HH:MM:SS, with optional fractional seconds).
func parseOffset(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many ':' separators")
	}

	if len(parts) == 1 {
		sec, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		if sec < 0 {
			return 0, fmt.Errorf("negative offset")
		}
		return time.Duration(sec * float64(time.Second)), nil
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad clock component %q", p)
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second)), nil
}
