package pump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// GetOptions controls how a job is followed after it is fetched or created.
type GetOptions struct {
	// Poll keeps fetching until the job reaches a terminal stage.
	Poll bool

	// OnSnapshot is called with every fetched snapshot, in order, before the
	// terminal check. A non-nil error ends the loop and is returned.
	OnSnapshot func(*Job) error
}

func (o GetOptions) observe(job *Job) error {
	if o.OnSnapshot == nil {
		return nil
	}
	return o.OnSnapshot(job)
}

// ListJobs returns every job the service knows about.
//
// A service that cannot be reached yields an empty list and a nil error; the
// failure is only logged.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	const op = "list jobs"
	data, err := c.call(ctx, op, http.MethodGet, "/jobs", nil)
	if err != nil {
		if errors.Is(err, ErrServiceUnreachable) {
			c.logger().Warn("pump service unreachable, listing no jobs", "error", err)
			return []Job{}, nil
		}
		return nil, err
	}
	return decodeJobList(op, data)
}

// GetJob fetches a job. Without opts.Poll the first snapshot is returned
// whatever its stage. With opts.Poll the job is re-fetched every
// PollInterval until its stage is terminal; there is no attempt limit, so
// callers bound the loop through ctx. Stopping early leaves the remote job
// running.
func (c *Client) GetJob(ctx context.Context, jobID string, opts GetOptions) (*Job, error) {
	const op = "get job"
	if jobID == "" {
		return nil, fmt.Errorf("%s: job id is required", op)
	}
	path := "/jobs/" + url.PathEscape(jobID)

	for {
		data, err := c.call(ctx, op, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		job, err := decodeJob(op, data)
		if err != nil {
			return nil, err
		}
		if err := opts.observe(job); err != nil {
			return nil, err
		}
		if !opts.Poll || job.Stage.IsTerminal() {
			return job, nil
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}
}

// CreateJob submits a job. Without opts.Poll the creation response is
// returned as the service sent it, usually in stage NOT_STARTED. With
// opts.Poll the call continues as GetJob on the new job id and returns once
// the job completes.
func (c *Client) CreateJob(ctx context.Context, req JobRequest, opts GetOptions) (*Job, error) {
	const op = "create job"
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := c.call(ctx, op, http.MethodPost, "/jobs", req)
	if err != nil {
		return nil, err
	}
	job, err := decodeJob(op, data)
	if err != nil {
		return nil, err
	}
	c.logger().Debug("pump job created", "job_id", job.JobID, "stage", job.Stage)

	if !opts.Poll {
		return job, nil
	}
	return c.GetJob(ctx, job.JobID, opts)
}

// PreviewJob runs queryIn synchronously and returns up to numRecords rows.
func (c *Client) PreviewJob(ctx context.Context, queryIn string, numRecords int) (*JobPreview, error) {
	const op = "preview job"
	if queryIn == "" {
		return nil, fmt.Errorf("%s: query is required", op)
	}
	if numRecords < 0 {
		return nil, fmt.Errorf("%s: number of records must not be negative, got %d", op, numRecords)
	}

	data, err := c.call(ctx, op, http.MethodPost, "/jobs/preview", previewRequest{
		QueryIn:      queryIn,
		PreviewCount: numRecords,
	})
	if err != nil {
		return nil, err
	}

	var preview JobPreview
	if err := json.Unmarshal(data, &preview); err != nil {
		return nil, fmt.Errorf("%s: decode preview: %w", op, err)
	}
	return &preview, nil
}
