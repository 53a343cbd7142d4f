package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"
)

var ErrJobNotFound = errors.New("job not found")

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is the persisted record of a curation job.
type Job struct {
	ID        string          `json:"id"`
	GraphID   string          `json:"graph_id"`
	Kind      string          `json:"kind"`
	Status    JobStatus       `json:"status"`
	Params    json.RawMessage `json:"params"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *GraphStore) CreateJob(ctx context.Context, id, kind string, params json.RawMessage) (*Job, error) {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	job := &Job{ID: id, GraphID: s.graphID, Kind: kind, Status: JobQueued, Params: params}
	err := s.conn.QueryRow(ctx, `
		INSERT INTO curation_jobs (id, graph_id, kind, status, params)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		id, s.graphID, kind, string(JobQueued), []byte(params),
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// SetJobStatus moves a job to status and stores its result or error.
func (s *GraphStore) SetJobStatus(ctx context.Context, id string, status JobStatus, result json.RawMessage, jobErr error) error {
	var (
		res    []byte
		errMsg *string
	)
	if len(result) > 0 {
		res = result
	}
	if jobErr != nil {
		msg := jobErr.Error()
		errMsg = &msg
	}
	tag, err := s.conn.Exec(ctx, `
		UPDATE curation_jobs
		SET status = $3, result = $4, error = $5, updated_at = now()
		WHERE graph_id = $1 AND id = $2`,
		s.graphID, id, string(status), res, errMsg,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func (s *GraphStore) GetJob(ctx context.Context, id string) (*Job, error) {
	rows, err := s.conn.Query(ctx, jobSelectSQL+` AND id = $2`, s.graphID, id)
	if err != nil {
		return nil, err
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return jobs[0], nil
}

// ListJobs returns the most recent jobs of the graph, newest first.
func (s *GraphStore) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, jobSelectSQL+` ORDER BY created_at DESC LIMIT $2`, s.graphID, limit)
	if err != nil {
		return nil, err
	}
	return scanJobs(rows)
}

const jobSelectSQL = `
	SELECT id, graph_id, kind, status, params, result, COALESCE(error, ''), created_at, updated_at
	FROM curation_jobs WHERE graph_id = $1`

func scanJobs(rows pgxv5.Rows) ([]*Job, error) {
	defer rows.Close()
	res := make([]*Job, 0)
	for rows.Next() {
		var (
			j      Job
			status string
			params []byte
			result []byte
		)
		if err := rows.Scan(&j.ID, &j.GraphID, &j.Kind, &status, &params, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Status = JobStatus(status)
		j.Params = params
		if len(result) > 0 {
			j.Result = result
		}
		res = append(res, &j)
	}
	return res, rows.Err()
}
