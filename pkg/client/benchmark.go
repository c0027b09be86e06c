package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// DefaultBenchmarkStartID keeps benchmark traffic away from ordinary ids.
const DefaultBenchmarkStartID uint64 = 1_000_000_000

const (
	OpCreate = "CREATE"
	OpGet    = "GET"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

var benchmarkOps = []string{OpCreate, OpGet, OpUpdate, OpDelete}

// latencies are recorded in microseconds, up to one minute.
const (
	histMin     = 1
	histMax     = int64(time.Minute / time.Microsecond)
	histSigFigs = 3
)

type BenchmarkOptions struct {
	Clients    int
	Iterations int
	StartID    uint64
}

type BenchmarkResult struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	P99   time.Duration
}

type BenchmarkReport struct {
	Results           map[string]BenchmarkResult
	SuccessfulClients int
	TotalRequests     int64
	Failures          int
	Duration          time.Duration
}

// Ops lists the operations present in the report in execution order.
func (r *BenchmarkReport) Ops() []string {
	ops := make([]string, 0, len(r.Results))
	for _, op := range benchmarkOps {
		if _, ok := r.Results[op]; ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// Throughput is requests per second over the whole run.
func (r *BenchmarkReport) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.TotalRequests) / r.Duration.Seconds()
}

func newHistograms() map[string]*hdrhistogram.Histogram {
	hists := make(map[string]*hdrhistogram.Histogram, len(benchmarkOps))
	for _, op := range benchmarkOps {
		hists[op] = hdrhistogram.New(histMin, histMax, histSigFigs)
	}
	return hists
}

// Benchmark runs create/get/update/delete cycles from opts.Clients
// concurrent workers, each on its own id range, and aggregates the
// latencies per operation. A worker stops at its first failed request.
func (c *Client) Benchmark(ctx context.Context, opts BenchmarkOptions) (*BenchmarkReport, error) {
	if opts.Clients < 1 || opts.Iterations < 1 {
		return nil, fmt.Errorf("clients and iterations must be positive, got %d and %d", opts.Clients, opts.Iterations)
	}
	if opts.StartID == 0 {
		opts.StartID = DefaultBenchmarkStartID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		merged   = newHistograms()
		report   = &BenchmarkReport{Results: make(map[string]BenchmarkResult)}
		firstErr error
	)

	start := time.Now()
	for i := 0; i < opts.Clients; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			hists := newHistograms()
			base := opts.StartID + uint64(worker)*uint64(opts.Iterations)
			err := c.benchmarkWorker(ctx, base, opts.Iterations, hists)

			mu.Lock()
			defer mu.Unlock()
			for op, h := range hists {
				merged[op].Merge(h)
			}
			if err != nil {
				report.Failures++
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			report.SuccessfulClients++
		}(i)
	}
	wg.Wait()
	report.Duration = time.Since(start)

	for op, h := range merged {
		if h.TotalCount() == 0 {
			continue
		}
		report.TotalRequests += h.TotalCount()
		report.Results[op] = BenchmarkResult{
			Count: h.TotalCount(),
			Min:   time.Duration(h.Min()) * time.Microsecond,
			Max:   time.Duration(h.Max()) * time.Microsecond,
			Avg:   time.Duration(h.Mean() * float64(time.Microsecond)),
			P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		}
	}

	if report.SuccessfulClients == 0 {
		return report, fmt.Errorf("all benchmark clients failed: %w", firstErr)
	}
	return report, nil
}

func (c *Client) benchmarkWorker(ctx context.Context, base uint64, iterations int, hists map[string]*hdrhistogram.Histogram) error {
	for j := 0; j < iterations; j++ {
		id := base + uint64(j)
		name := fmt.Sprintf("benchmark-%d", id)

		steps := []struct {
			op  string
			run func() error
		}{
			{OpCreate, func() error { return expectStatus(c.Create(ctx, Simulation{ID: id, Name: name})) }},
			{OpGet, func() error {
				sims, err := c.Get(ctx, id)
				if err == nil && len(sims) != 1 {
					err = fmt.Errorf("simulation #%d not found after create", id)
				}
				return err
			}},
			{OpUpdate, func() error { return expectStatus(c.Update(ctx, id, name+"-updated")) }},
			{OpDelete, func() error { return expectStatus(c.Delete(ctx, id)) }},
		}

		for _, step := range steps {
			began := time.Now()
			if err := step.run(); err != nil {
				return fmt.Errorf("%s #%d: %w", step.op, id, err)
			}
			record(hists[step.op], time.Since(began))
		}
	}
	return nil
}

func expectStatus(resp Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("status %d: %s", resp.Status, resp.Message)
	}
	return nil
}

func record(h *hdrhistogram.Histogram, d time.Duration) {
	us := d.Microseconds()
	if us < histMin {
		us = histMin
	}
	if us > histMax {
		us = histMax
	}
	_ = h.RecordValue(us)
}

