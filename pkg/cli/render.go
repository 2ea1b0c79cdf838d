package cli

import (
	"io"

	"watershed/pkg/pump"
)

// jobRenderer prints job snapshots in the selected output format. In json
// mode a polled job is written as one compact line per snapshot, a single
// job as an indented document.
type jobRenderer struct {
	out         io.Writer
	json        bool
	summaryOnly bool
	poll        bool
	progress    *pump.ProgressWriter
}

func newJobRenderer(out io.Writer, output string, summaryOnly, poll bool) *jobRenderer {
	r := &jobRenderer{
		out:         out,
		json:        output == "json",
		summaryOnly: summaryOnly,
		poll:        poll,
	}
	if poll && summaryOnly && !r.json {
		r.progress = pump.NewProgressWriter(out)
	}
	return r
}

func (r *jobRenderer) render(job *pump.Job) error {
	switch {
	case r.json && r.poll:
		return printJSONLine(r.out, job.Raw())
	case r.json:
		return PrintJSON(r.out, job.Raw())
	case r.progress != nil:
		return r.progress.Update(job)
	case r.summaryOnly:
		return pump.WriteSummary(r.out, job)
	default:
		return pump.WriteDetail(r.out, job)
	}
}

// finish ends an in-place progress line.
func (r *jobRenderer) finish() error {
	if r.progress == nil {
		return nil
	}
	return r.progress.Done()
}
