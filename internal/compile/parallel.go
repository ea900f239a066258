package compile

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/track"
)

// Job holds the tracks of one chromosome ready for compilation.
type Job struct {
	Seq       int
	Chrom     string
	Tracks    map[string]*track.Track
	Reference *track.Track
}

// Result holds the compile output for a single chromosome.
type Result struct {
	Seq   int
	Chrom string
	Stats Stats
	Err   error
}

// CompileAll compiles jobs using a pool of workers. Chromosomes share no
// tracks, so each job runs independently; lengths is safe for concurrent
// growth. Results are sent in arrival order (not sequence order); use
// OrderedCollect to consume them in sequence-number order.
//
// A cancelled ctx stops workers from starting further chromosomes; skipped
// jobs report ctx.Err(). A chromosome already being compiled runs to the end.
func (c *Compiler) CompileAll(ctx context.Context, jobs []Job, lengths *genome.ChromosomeSet) <-chan Result {
	workers := c.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	items := make(chan Job)
	go func() {
		defer close(items)
		for _, j := range jobs {
			items <- j
		}
	}()

	results := make(chan Result, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for job := range items {
				if err := ctx.Err(); err != nil {
					results <- Result{Seq: job.Seq, Chrom: job.Chrom, Err: err}
					continue
				}
				stats, err := c.CompileChromosome(job.Chrom, job.Tracks, job.Reference, lengths)
				results <- Result{Seq: job.Seq, Chrom: job.Chrom, Stats: stats, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan Result, fn func(Result) error) error {
	pending := make(map[int]Result)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
