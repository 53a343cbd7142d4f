package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/OFFIS-RIT/curator/internal/storage"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/leaselock"
	"github.com/OFFIS-RIT/curator/pkg/logger"
	"github.com/OFFIS-RIT/curator/pkg/metrics"
	pgstore "github.com/OFFIS-RIT/curator/pkg/store/pgx"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// Worker bundles what the curation worker needs to run jobs.
type Worker struct {
	Pool    *pgxpool.Pool
	Locks   *leaselock.Client
	S3      *s3.Client
	Ch      *amqp091.Channel
	Metrics *metrics.Collector
	LockTTL time.Duration
}

// JobDone is published on TopicJobDone after a job finished.
type JobDone struct {
	JobID   string     `json:"job_id"`
	GraphID string     `json:"graph_id"`
	Kind    JobKind    `json:"kind"`
	Status  string     `json:"status"`
	Result  *JobResult `json:"result,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// ProcessJob runs one curation job. The graph's write lease is held for
// the whole job and all changes are made in one transaction, so a failed
// job leaves the graph untouched.
//
// Invalid messages are logged and dropped by returning nil: retrying them
// cannot succeed.
func (w *Worker) ProcessJob(ctx context.Context, body []byte) error {
	msg, err := ParseJobMsg(body)
	if err != nil {
		logger.Error("[Queue] Dropping invalid job message", "err", err)
		return nil
	}

	store, err := pgstore.NewGraphStore(w.Pool, msg.GraphID)
	if err != nil {
		return err
	}
	if err := store.SetJobStatus(ctx, msg.ID, pgstore.JobRunning, nil, nil); err != nil && !errors.Is(err, pgstore.ErrJobNotFound) {
		return err
	}

	start := time.Now()
	var result *JobResult
	jobErr := w.Locks.WithGraphLease(ctx, msg.GraphID, leaselock.Options{
		TTL:          w.LockTTL,
		Wait:         true,
		WaitInterval: time.Second,
		WaitJitter:   500 * time.Millisecond,
		TokenPrefix:  "worker-",
	}, func(ctx context.Context) error {
		return store.WithTx(ctx, func(tx *pgstore.GraphStore) error {
			res, err := Execute(ctx, tx, msg, w.putSnapshot)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	w.observe(msg, result, start, jobErr)

	// Inconsistencies and bad parameters will fail again on retry.
	permanent := errors.Is(jobErr, graph.ErrInconsistent) || errors.Is(jobErr, graph.ErrMissingParameter)
	if jobErr != nil && !permanent {
		return jobErr
	}

	if jobErr != nil {
		logger.Error("[Queue] Curation job failed permanently", "job", msg.ID, "kind", msg.Kind, "err", jobErr)
	}
	return w.finish(ctx, store, msg, result, jobErr)
}

// FailJob marks the job of a dead-lettered message as failed with cause and
// announces it on TopicJobDone.
func (w *Worker) FailJob(ctx context.Context, body []byte, cause error) error {
	msg, err := ParseJobMsg(body)
	if err != nil {
		return nil
	}
	store, err := pgstore.NewGraphStore(w.Pool, msg.GraphID)
	if err != nil {
		return err
	}
	logger.Error("[Queue] Curation job dead-lettered", "job", msg.ID, "kind", msg.Kind, "err", cause)
	return w.finish(ctx, store, msg, nil, cause)
}

// jobDone builds the completion message; a non-nil jobErr means failed.
func jobDone(msg *JobMsg, result *JobResult, jobErr error) JobDone {
	done := JobDone{JobID: msg.ID, GraphID: msg.GraphID, Kind: msg.Kind, Status: string(pgstore.JobDone), Result: result}
	if jobErr != nil {
		done.Status = string(pgstore.JobFailed)
		done.Error = jobErr.Error()
	}
	return done
}

func (w *Worker) finish(ctx context.Context, store *pgstore.GraphStore, msg *JobMsg, result *JobResult, jobErr error) error {
	done := jobDone(msg, result, jobErr)

	var resultJSON []byte
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		resultJSON = data
	}
	if err := store.SetJobStatus(ctx, msg.ID, pgstore.JobStatus(done.Status), resultJSON, jobErr); err != nil && !errors.Is(err, pgstore.ErrJobNotFound) {
		return err
	}

	data, err := json.Marshal(done)
	if err != nil {
		return err
	}
	if err := PublishTopic(w.Ch, TopicJobDone, data); err != nil {
		logger.Error("[Queue] Failed to publish job completion", "job", msg.ID, "err", err)
	}
	return nil
}

func (w *Worker) putSnapshot(ctx context.Context, graphID string, snap *graph.Snapshot) (string, error) {
	return storage.PutSnapshot(ctx, w.S3, graphID, snap)
}

func (w *Worker) observe(msg *JobMsg, result *JobResult, start time.Time, err error) {
	if w.Metrics == nil {
		return
	}
	w.Metrics.ObserveJob(string(msg.Kind), start, err)
	if result == nil {
		return
	}
	if result.Merge != nil {
		w.Metrics.ObserveMerge(string(msg.Kind), result.Merge.Removed)
	}
	if result.EdgesAdded != nil {
		w.Metrics.ObserveLink(*result.EdgesAdded)
	}
}
