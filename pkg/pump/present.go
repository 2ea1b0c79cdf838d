package pump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/term"
)

const placeholder = "-"

// Summary renders a job on one line:
//
//	j-1: IN_PROGRESS(5s, 12.0 rec/s) 60 successful, 0 failed, 40 pending
//
// Missing fields render as "-".
func Summary(job *Job) string {
	return fmt.Sprintf("%s: %s(%s, %s) %s successful, %s failed, %s pending",
		orPlaceholder(job.JobID),
		orPlaceholder(string(job.Stage)),
		orPlaceholder(job.ElapsedTimePretty),
		orPlaceholder(job.MeanRatePretty),
		formatCount(job.SuccessfulRecordCount),
		formatCount(job.FailureRecordCount),
		formatCount(job.PendingRecordCount),
	)
}

// WriteSummary writes Summary(job) followed by a newline.
func WriteSummary(w io.Writer, job *Job) error {
	_, err := fmt.Fprintln(w, Summary(job))
	return err
}

// WriteDetail writes every field of the job payload as indented JSON with
// keys sorted at every level.
func WriteDetail(w io.Writer, job *Job) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(job.Raw()))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode job %s: %w", job.JobID, err)
	}
	return encodeSorted(w, v, "    ")
}

// WritePreview writes each preview row as a JSON line followed by the total
// row count.
func WritePreview(w io.Writer, preview *JobPreview) error {
	if _, err := fmt.Fprintln(w, "Row preview:"); err != nil {
		return err
	}
	for _, row := range preview.Rows {
		if err := encodeSorted(w, row, ""); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total number of rows: %d\n", preview.Count)
	return err
}

// ProgressWriter renders successive summaries of a polled job. On a
// terminal the summary line is redrawn in place; elsewhere each snapshot
// gets its own line.
type ProgressWriter struct {
	w       io.Writer
	inPlace bool
	pending bool
}

// NewProgressWriter returns a ProgressWriter for w.
func NewProgressWriter(w io.Writer) *ProgressWriter {
	return &ProgressWriter{w: w, inPlace: isTerminal(w)}
}

// Update renders a new snapshot.
func (p *ProgressWriter) Update(job *Job) error {
	if !p.inPlace {
		return WriteSummary(p.w, job)
	}
	p.pending = true
	_, err := fmt.Fprintf(p.w, "\r\033[K%s", Summary(job))
	return err
}

// Done terminates an in-place line.
func (p *ProgressWriter) Done() error {
	if !p.pending {
		return nil
	}
	p.pending = false
	_, err := fmt.Fprintln(p.w)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

func encodeSorted(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(v)
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func formatCount(n *int64) string {
	if n == nil {
		return placeholder
	}
	return strconv.FormatInt(*n, 10)
}
