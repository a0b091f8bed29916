package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/query"
)

// QueueTimeEpoch is the first day raw records carry a QueueTime field.
var QueueTimeEpoch = time.Date(2021, 3, 9, 0, 0, 0, 0, time.UTC)

// ErrMissingQueueTime marks a record replayed without a QueueTime.
var ErrMissingQueueTime = errors.New("record has no QueueTime")

// QueueSampler replays jobs in start-time order until the cumulative
// core-hours exceed a target, collecting queue delays along the way.
type QueueSampler struct {
	target float64
	delays []float64
	sample entity.QueueSample
}

// NewQueueSampler returns a sampler that stops once core-hours exceed target.
func NewQueueSampler(target float64) *QueueSampler {
	return &QueueSampler{target: target}
}

// Add accounts one job. The job always counts toward jobs, wall time and
// core-hours; its delay is only recorded when QueueTime and EndTime parse.
// A non-nil error describes why the delay was skipped and is not fatal.
// done reports that the target has been exceeded and the replay should stop.
func (q *QueueSampler) Add(job entity.JobRecord) (done bool, err error) {
	q.sample.Jobs++
	q.sample.WallTime += job.WallDuration
	q.sample.CoreHours += job.CoreHours

	err = q.recordDelay(job)
	if err != nil {
		q.sample.SkippedJobs++
	}

	if q.sample.CoreHours > q.target {
		q.sample.ReachedTarget = true
		return true, err
	}
	return false, err
}

func (q *QueueSampler) recordDelay(job entity.JobRecord) error {
	if job.QueueTime == nil || *job.QueueTime == "" {
		return ErrMissingQueueTime
	}
	queued, err := query.ParseTimestamp(*job.QueueTime)
	if err != nil {
		return fmt.Errorf("bad QueueTime: %w", err)
	}
	ended, err := query.ParseTimestamp(job.EndTime)
	if err != nil {
		return fmt.Errorf("bad EndTime: %w", err)
	}
	delay := ended.Sub(queued).Seconds() - job.WallDuration
	q.delays = append(q.delays, delay)
	q.sample.AggregateDelay += delay
	return nil
}

// Result computes the delay statistics over the jobs seen so far.
// Standard deviation needs at least two delays; a single delay is its own
// 90th percentile.
func (q *QueueSampler) Result() entity.QueueSample {
	s := q.sample
	if len(q.delays) == 0 {
		return s
	}

	s.MaxDelay, _ = stats.Max(q.delays)
	s.MeanDelay, _ = stats.Mean(q.delays)
	if len(q.delays) == 1 {
		s.P90Delay = q.delays[0]
		return s
	}
	s.StdDevDelay, _ = stats.StandardDeviationSample(q.delays)
	s.P90Delay, _ = stats.Percentile(q.delays, 90)
	return s
}
