package runner

import (
	"time"

	"cmdrunner/internal/engine"
	"cmdrunner/internal/sysmon"
)

// Policy decides how command statuses combine into the final status.
type Policy struct {
	// StopOnError skips the remaining commands once a command fails or a
	// setError rule has matched.
	StopOnError bool
	// SumReturns adds up the command statuses instead of keeping the last.
	SumReturns bool
	// ForceReturn, when set, replaces the final status.
	ForceReturn *int
}

// Result describes one command run.
type Result struct {
	Command string
	// ExitCode is what the command returned. A command killed by a signal
	// reports 128 plus the signal number; a command that could not be
	// started reports 1.
	ExitCode int
	// Status is ExitCode after the sticky error has been applied.
	Status   int
	Signal   string
	StartErr error

	Elapsed    time.Duration
	UserTime   time.Duration
	SystemTime time.Duration
	Usage      sysmon.Usage
}

// Summary describes a whole run.
type Summary struct {
	Results  []Result
	ExitCode int
	Elapsed  time.Duration
}

// PeakRSS is the largest peak RSS of any command.
func (s Summary) PeakRSS() uint64 {
	var peak uint64
	for _, r := range s.Results {
		if r.Usage.PeakRSS > peak {
			peak = r.Usage.PeakRSS
		}
	}
	return peak
}

// CPUTime is the user and system time of all commands.
func (s Summary) CPUTime() (user, system time.Duration) {
	for _, r := range s.Results {
		user += r.UserTime
		system += r.SystemTime
	}
	return user, system
}

// tracker folds command results into the run status. The sticky error of
// the engine turns a clean status into 1, per command and at the end.
type tracker struct {
	policy Policy
	engine *engine.Engine
	status int
}

// add records res and reports whether the run should stop.
func (t *tracker) add(res *Result) bool {
	res.Status = res.ExitCode
	if res.Status == 0 && t.engine.Failed() {
		res.Status = 1
	}
	if t.policy.SumReturns {
		t.status += res.Status
	} else {
		t.status = res.Status
	}
	return t.policy.StopOnError && (res.Status != 0 || t.engine.Failed())
}

func (t *tracker) final() int {
	return FinalStatus(t.status, t.engine.Failed(), t.policy.ForceReturn)
}

// FinalStatus applies the sticky error and a forced return value.
func FinalStatus(status int, failed bool, force *int) int {
	if status == 0 && failed {
		status = 1
	}
	if force != nil {
		return *force
	}
	return status
}
