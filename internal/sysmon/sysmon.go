// Package sysmon samples the resource usage of a running command and its
// children.
package sysmon

import (
	"sync"
	"time"

	"cmdrunner/internal/logging"

	"github.com/shirou/gopsutil/v3/process"
)

// DefaultInterval is how often a Sampler polls.
const DefaultInterval = 100 * time.Millisecond

// Usage is what a Sampler observed.
type Usage struct {
	// PeakRSS is the largest resident set size of the whole process tree
	// seen in one sample, in bytes.
	PeakRSS uint64
	// PeakProcesses is the largest number of processes seen in one sample.
	PeakProcesses int
	// Samples is the number of polls that found the process alive.
	Samples int
}

// PeakRSSMB is PeakRSS in MiB.
func (u Usage) PeakRSSMB() float64 {
	return float64(u.PeakRSS) / 1024 / 1024
}

// Sampler polls a process tree until Stop is called.
type Sampler struct {
	pid      int32
	interval time.Duration

	mu    sync.Mutex
	usage Usage

	stop chan struct{}
	done chan struct{}
}

// Start begins sampling pid every interval. A non-positive interval uses
// DefaultInterval.
func Start(pid int, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Sampler{
		pid:      int32(pid),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Sampler) loop() {
	defer close(s.done)

	p, err := process.NewProcess(s.pid)
	if err != nil {
		// Short-lived processes may already be gone.
		logger := logging.GetLogger("sysmon")
		logger.Debug().Int32("pid", s.pid).Err(err).Msg("Process not found for sampling")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sample(p)
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

func (s *Sampler) sample(p *process.Process) {
	var rss uint64
	count := 0
	for _, proc := range tree(p) {
		if mem, err := proc.MemoryInfo(); err == nil {
			rss += mem.RSS
			count++
		}
	}
	if count == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Samples++
	if rss > s.usage.PeakRSS {
		s.usage.PeakRSS = rss
	}
	if count > s.usage.PeakProcesses {
		s.usage.PeakProcesses = count
	}
}

// tree returns p and all its descendants that are still accessible.
func tree(p *process.Process) []*process.Process {
	procs := []*process.Process{p}
	for i := 0; i < len(procs); i++ {
		children, err := procs[i].Children()
		if err != nil {
			continue
		}
		procs = append(procs, children...)
	}
	return procs
}

// Usage returns what has been observed so far.
func (s *Sampler) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Stop ends sampling and returns the final usage. It is safe to call more
// than once.
func (s *Sampler) Stop() Usage {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	return s.Usage()
}
