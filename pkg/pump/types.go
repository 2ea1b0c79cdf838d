package pump

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Stage is the lifecycle label the Pump service reports for a job. The
// service may introduce labels the client does not know about; anything other
// than the two completed stages counts as in progress.
type Stage string

// Stages reported by the Pump service.
const (
	StageNotStarted       Stage = "NOT_STARTED"
	StageInProgress       Stage = "IN_PROGRESS"
	StageCompletedSuccess Stage = "COMPLETED_SUCCESS"
	StageCompletedError   Stage = "COMPLETED_ERROR"
)

// IsTerminal reports whether polling should stop at this stage.
func (s Stage) IsTerminal() bool {
	return s == StageCompletedSuccess || s == StageCompletedError
}

// Settings are the options a job was created with.
type Settings struct {
	QueryIn            string `json:"queryIn"`
	StreamOut          string `json:"streamOut"`
	HasReplayFlag      bool   `json:"hasReplayFlag"`
	HasOverwriteFlag   bool   `json:"hasOverwriteFlag"`
	RawDataColumn      string `json:"rawDataColumn,omitempty"`
	PartitionKeyColumn string `json:"partitionKeyColumn,omitempty"`
}

// Job is a read-only snapshot of a Pump job. Every fetch produces a new
// snapshot; nothing in the client mutates one after decoding.
type Job struct {
	JobID    string    `json:"jobId"`
	Stage    Stage     `json:"stage"`
	Settings *Settings `json:"pumpSettings,omitempty"`

	SuccessfulRecordCount *int64 `json:"successfulRecordCount,omitempty"`
	FailureRecordCount    *int64 `json:"failureRecordCount,omitempty"`
	PendingRecordCount    *int64 `json:"pendingRecordCount,omitempty"`

	ElapsedTime       *int64   `json:"elapsedTime,omitempty"` // milliseconds
	ElapsedTimePretty string   `json:"elapsedTimePretty,omitempty"`
	MeanRate          *float64 `json:"meanRate,omitempty"`
	MeanRatePretty    string   `json:"meanRatePretty,omitempty"`

	ProcessingErrors  []json.RawMessage `json:"processingErrors,omitempty"`
	LastSuccessfulRow json.RawMessage   `json:"lastSuccessfulRow,omitempty"`

	raw []byte
}

// QueryIn returns the source query the job was created with.
func (j *Job) QueryIn() string {
	if j.Settings == nil {
		return ""
	}
	return j.Settings.QueryIn
}

// StreamOut returns the destination stream the job emits to.
func (j *Job) StreamOut() string {
	if j.Settings == nil {
		return ""
	}
	return j.Settings.StreamOut
}

// HasReplayFlag reports whether emitted records carry the replay flag.
func (j *Job) HasReplayFlag() bool {
	return j.Settings != nil && j.Settings.HasReplayFlag
}

// HasOverwriteFlag reports whether emitted records carry the overwrite flag.
func (j *Job) HasOverwriteFlag() bool {
	return j.Settings != nil && j.Settings.HasOverwriteFlag
}

// Raw returns a copy of the payload the snapshot was decoded from. Jobs built
// in code rather than decoded fall back to their own JSON encoding.
func (j *Job) Raw() json.RawMessage {
	if len(j.raw) == 0 {
		data, err := json.Marshal(j)
		if err != nil {
			return nil
		}
		return data
	}
	out := make([]byte, len(j.raw))
	copy(out, j.raw)
	return out
}

// JobPreview is a synchronous sample of a query's results. Count is the
// total number of matching rows and may exceed len(Rows).
type JobPreview struct {
	Rows  []map[string]any `json:"rows"`
	Count int64            `json:"count"`
}

// JobRequest is the body of a job creation request.
type JobRequest struct {
	QueryIn       string `json:"queryIn"`
	StreamOut     string `json:"streamOut"`
	ReplayFlag    bool   `json:"hasReplayFlag"`
	OverwriteFlag bool   `json:"hasOverwriteFlag"`
}

// Validate checks that the request names a query and a stream.
func (r JobRequest) Validate() error {
	if r.QueryIn == "" {
		return fmt.Errorf("query is required")
	}
	if r.StreamOut == "" {
		return fmt.Errorf("stream is required")
	}
	return nil
}

type previewRequest struct {
	QueryIn      string `json:"queryIn"`
	PreviewCount int    `json:"previewCount"`
}

// legacySettings covers services that report the creation options at the
// top level of the job instead of under pumpSettings.
type legacySettings struct {
	QueryIn          *string `json:"queryIn"`
	StreamOut        *string `json:"streamOut"`
	HasReplayFlag    bool    `json:"hasReplayFlag"`
	HasOverwriteFlag bool    `json:"hasOverwriteFlag"`
}

// decodeJob validates and decodes a single job payload. The presence of
// jobId is the only structural requirement. A numeric jobId is kept in its
// decimal form; any other non-string id is rejected.
func decodeJob(op string, data []byte) (*Job, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		if json.Valid(data) {
			return nil, &InvalidJobResponseError{Op: op, Payload: string(data)}
		}
		return nil, fmt.Errorf("%s: decode job: %w", op, err)
	}
	id, ok := parseJobID(fields["jobId"])
	if !ok {
		return nil, &InvalidJobResponseError{Op: op, Payload: string(data)}
	}

	type plainJob Job
	aux := struct {
		*plainJob
		JobID json.RawMessage `json:"jobId"`
	}{plainJob: (*plainJob)(&Job{})}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil, fmt.Errorf("%s: decode job: %w", op, err)
	}
	job := Job(*aux.plainJob)
	job.JobID = id
	if job.Settings == nil {
		var legacy legacySettings
		if err := json.Unmarshal(data, &legacy); err == nil && (legacy.QueryIn != nil || legacy.StreamOut != nil) {
			job.Settings = &Settings{
				HasReplayFlag:    legacy.HasReplayFlag,
				HasOverwriteFlag: legacy.HasOverwriteFlag,
			}
			if legacy.QueryIn != nil {
				job.Settings.QueryIn = *legacy.QueryIn
			}
			if legacy.StreamOut != nil {
				job.Settings.StreamOut = *legacy.StreamOut
			}
		}
	}
	job.raw = append([]byte(nil), data...)
	return &job, nil
}

func parseJobID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch id := v.(type) {
	case string:
		return id, true
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}

// decodeJobList decodes the job listing, validating every entry.
func decodeJobList(op string, data []byte) ([]Job, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s: decode jobs: %w", op, err)
	}
	jobs := make([]Job, 0, len(items))
	for _, item := range items {
		job, err := decodeJob(op, item)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
