package health

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/dexsentry/dexsentry/internal/safemode"
)

// windowSize bounds the rolling window of recorded upstream calls.
const windowSize = 50

// Sampler produces HealthSamples from host metrics plus a rolling window of
// recorded upstream call outcomes. Call RecordAPICall from the clients that
// talk to the network; Sample from the loop that feeds the safe-mode
// controller.
type Sampler struct {
	mu          sync.Mutex
	outcomes    []bool          // true = failure
	latencies   []time.Duration // same window as outcomes
	consecutive int

	// Stats.
	samplesTaken int64
}

// NewSampler creates an empty sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

// RecordAPICall records one upstream call result and its latency.
func (s *Sampler) RecordAPICall(success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		s.consecutive = 0
	} else {
		s.consecutive++
	}

	s.outcomes = append(s.outcomes, !success)
	s.latencies = append(s.latencies, latency)
	if len(s.outcomes) > windowSize {
		s.outcomes = s.outcomes[1:]
		s.latencies = s.latencies[1:]
	}
}

// ConsecutiveFailures returns the current unbroken failure streak.
func (s *Sampler) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutive
}

// Sample reads host CPU and memory and folds in the rolling call window.
// Metric read failures degrade to zero values rather than erroring: a
// sampler that cannot read the host must not take the pipeline down.
func (s *Sampler) Sample(ctx context.Context) safemode.HealthSample {
	sample := safemode.HealthSample{ObservedAt: time.Now()}

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		sample.CPUPct = pcts[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.MemPct = vm.UsedPercent
	}

	s.mu.Lock()
	if n := len(s.outcomes); n > 0 {
		failures := 0
		var total time.Duration
		for i, failed := range s.outcomes {
			if failed {
				failures++
			}
			total += s.latencies[i]
		}
		sample.ErrorRate = float64(failures) / float64(n)
		sample.AvgLatencyMs = float64(total.Milliseconds()) / float64(n)
	}
	s.samplesTaken++
	s.mu.Unlock()

	return sample
}

// Stats is a snapshot of the sampler's counters for the status surface.
type Stats struct {
	SamplesTaken        int64 `json:"samples_taken"`
	WindowCalls         int   `json:"window_calls"`
	ConsecutiveFailures int   `json:"consecutive_failures"`
}

func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SamplesTaken:        s.samplesTaken,
		WindowCalls:         len(s.outcomes),
		ConsecutiveFailures: s.consecutive,
	}
}
