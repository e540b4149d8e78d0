package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finlab/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	fails    int // runs that fail before the first success
	runs     int
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	j.runs++
	if j.runs <= j.fails {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@every 1h"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "@every 1h"}), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "b", schedule: "not a schedule"}))

	_, err := s.RunNow(context.Background(), "b")
	assert.Error(t, err)
}

func TestRunNowRetries(t *testing.T) {
	s := New(logger.Nop(), WithRetries(2, 0))

	flaky := &fakeJob{name: "flaky", schedule: "@every 1h", fails: 2}
	broken := &fakeJob{name: "broken", schedule: "@every 1h", fails: 10}
	require.NoError(t, s.AddJob(flaky))
	require.NoError(t, s.AddJob(broken))

	res, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)

	res, err = s.RunNow(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "transient", res.Error)

	stats := s.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "broken", stats[0].JobName)
	assert.Equal(t, 1, stats[0].FailureCount)
	assert.Equal(t, "transient", stats[0].LastError)
	assert.Equal(t, 1.0, stats[1].SuccessRate)
}

func TestStartStop(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@every 1h"}))
	s.Start()
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	assert.Empty(t, h.Latest(5))

	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.Latest(3), 3)
	assert.Equal(t, 50, h.Failures())
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}
