package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/tumorpair/mutect2parallel/shared"
)

// Outcome is the result of one unit of dispatched work.
type Outcome struct {
	ID string
	OK bool
}

// Procs bounds a requested number of workers by the available parallelism
// and by the amount of work.
func Procs(requested, jobs int) int {
	if n := runtime.GOMAXPROCS(0); requested > n || requested < 1 {
		requested = n
	}
	if requested > jobs {
		requested = jobs
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

// Dispatch calls fn for every index of ids from at most procs goroutines.
// Each index is handed to exactly one goroutine. Outcomes arrive in
// completion order and the channel is closed once all work is done.
func Dispatch(procs int, ids []string, fn func(i int) bool) <-chan Outcome {
	procs = Procs(procs, len(ids))
	ch := make(chan int)
	results := make(chan Outcome, len(ids))
	go func() {
		for i := range ids {
			ch <- i
		}
		close(ch)
	}()

	var wg sync.WaitGroup
	wg.Add(procs)
	for k := 0; k < procs; k++ {
		go func() {
			defer wg.Done()
			for i := range ch {
				results <- Outcome{ID: ids[i], OK: fn(i)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// RunAll runs the filtering pipeline on groups and returns how many failed.
func (p *Pipeline) RunAll(ctx context.Context, groups []*Group, procs int) int {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	shared.Slogger.Printf("filtering %d groups in %d processes", len(groups), Procs(procs, len(groups)))
	remaining, failed := len(groups), 0
	for o := range Dispatch(procs, ids, func(i int) bool { return p.Run(ctx, groups[i]) }) {
		remaining--
		if o.OK {
			shared.Slogger.Printf("All comparisons for %s run successfully. %d groups remaining.", o.ID, remaining)
		} else {
			failed++
			shared.Slogger.Printf("[Error] Some files from %s failed comparison. %d groups remaining.", o.ID, remaining)
		}
	}
	return failed
}

// CallAll runs the caller on every group of the manifest and returns how many
// failed.
func (p *Pipeline) CallAll(ctx context.Context, entries []Entry, procs int) int {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	shared.Slogger.Printf("calling %d groups in %d processes", len(entries), Procs(procs, len(entries)))
	remaining, failed := len(entries), 0
	for o := range Dispatch(procs, ids, func(i int) bool { return p.Call(ctx, entries[i]) }) {
		remaining--
		if o.OK {
			shared.Slogger.Printf("mutect finished for %s. %d groups remaining.", o.ID, remaining)
		} else {
			failed++
			shared.Slogger.Printf("[Error] mutect failed for %s. %d groups remaining.", o.ID, remaining)
		}
	}
	return failed
}
