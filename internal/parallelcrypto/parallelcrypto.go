// Package parallelcrypto batches the block range a whole-object integrity
// scan walks into worker-sized chunks. securestore's object blocks are a
// fixed 256 bytes (internal/store.BlockSize) — far smaller than the 4KB+
// pages a general-purpose encrypted filesystem moves per I/O — so a single
// AEAD open is cheap and the goroutine-dispatch overhead only pays for
// itself once an object has enough blocks that the dispatch cost is
// amortized across many of them. The thresholds below are tuned for that,
// not for generic "large I/O" like a mounted-filesystem read/write path.
package parallelcrypto

import (
	"runtime"
	"sync"

	"github.com/extimsu/securestore/internal/cpudetection"
	"github.com/extimsu/securestore/internal/tlog"
)

const (
	// ScanParallelThreshold is the minimum number of blocks in a scrub pass
	// before splitting it across workers is worth the dispatch overhead.
	// Higher than a generic per-request threshold would be, because each
	// unit of work here is one 256-byte AEAD open, not a multi-KB page.
	ScanParallelThreshold = 64
	// MaxScanWorkers caps worker count regardless of core count, so a scan
	// on a big machine doesn't spin up more goroutines than there is
	// memprotect-locked key material to safely share between them.
	MaxScanWorkers = 16
	// MinWorkerCPUs is the minimum core count before splitting a scan
	// across goroutines is considered at all.
	MinWorkerCPUs = 2
	// BatchBlocks is the minimum block count before batching (without full
	// parallelism) is used, to keep cache locality on small scans.
	BatchBlocks = 2
)

// ParallelCrypto batches an integrity scan's block range across workers
// sized for securestore's fixed small block, not a generic crypto engine.
type ParallelCrypto struct {
	enabled  bool
	cpuCount int
	features *cpudetection.CPUFeatures
}

// New builds a ParallelCrypto sized to the host's core count and AES/AVX
// feature set, as reported by internal/cpudetection (the same detector
// internal/speed uses), rather than assuming modern-CPU features.
func New() *ParallelCrypto {
	return &ParallelCrypto{
		enabled:  true,
		cpuCount: runtime.NumCPU(),
		features: cpudetection.New().GetFeatures(),
	}
}

// IsEnabled returns whether parallel scanning is enabled.
func (pc *ParallelCrypto) IsEnabled() bool {
	return pc.enabled
}

// Disable turns parallel scanning off; every scan then runs on the
// calling goroutine.
func (pc *ParallelCrypto) Disable() {
	pc.enabled = false
}

// ShouldUseParallel reports whether a scan of blockCount blocks is worth
// splitting across goroutines.
func (pc *ParallelCrypto) ShouldUseParallel(blockCount int) bool {
	if !pc.enabled {
		return false
	}
	if pc.cpuCount < MinWorkerCPUs {
		return false
	}
	return blockCount >= ScanParallelThreshold
}

// ShouldUseBatch reports whether blockCount blocks are worth chunking for
// cache locality even without full goroutine parallelism.
func (pc *ParallelCrypto) ShouldUseBatch(blockCount int) bool {
	return pc.enabled && blockCount >= BatchBlocks
}

// WorkerCount returns the number of workers to use for a scan of
// blockCount blocks, scaled by core count and AES-NI/AVX2 availability,
// capped at MaxScanWorkers and at blockCount itself.
func (pc *ParallelCrypto) WorkerCount(blockCount int) int {
	if !pc.enabled || blockCount < ScanParallelThreshold || pc.cpuCount < MinWorkerCPUs {
		return 1
	}

	workers := pc.cpuCount
	switch {
	case pc.features.AESNI && pc.features.AVX2:
		workers = int(float64(workers) * 1.5)
	case pc.features.AVX:
		workers = int(float64(workers) * 1.2)
	}

	if workers > MaxScanWorkers {
		workers = MaxScanWorkers
	}
	if workers > blockCount {
		workers = blockCount
	}
	return workers
}

// ScanRange runs scanFunc(start, end) over [0, blockCount), splitting the
// range across WorkerCount(blockCount) goroutines when that's worth doing,
// and blocking until every chunk has completed. scanFunc must be safe to
// call concurrently with disjoint ranges — internal/scrub uses this to
// decrypt-and-verify many blocks of one object without serializing the
// whole pass behind a single goroutine.
func (pc *ParallelCrypto) ScanRange(blockCount int, scanFunc func(start, end int)) {
	if !pc.ShouldUseParallel(blockCount) {
		pc.scanBatched(blockCount, scanFunc)
		return
	}

	workers := pc.WorkerCount(blockCount)
	chunk := blockCount / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			start := workerID * chunk
			end := start + chunk
			if workerID == workers-1 {
				end = blockCount
			}
			scanFunc(start, end)
		}(w)
	}
	wg.Wait()
}

// scanBatched walks blockCount blocks sequentially in small chunks, sized
// up when AVX2 is available, for objects too small to justify goroutines.
func (pc *ParallelCrypto) scanBatched(blockCount int, scanFunc func(start, end int)) {
	if !pc.ShouldUseBatch(blockCount) {
		scanFunc(0, blockCount)
		return
	}

	batch := 4
	if pc.features.AVX2 {
		batch = 8
	}
	for start := 0; start < blockCount; start += batch {
		end := start + batch
		if end > blockCount {
			end = blockCount
		}
		scanFunc(start, end)
	}
}

// LogScanPlan logs the worker/batch plan a scan of blockCount blocks would
// use, without running it.
func (pc *ParallelCrypto) LogScanPlan(blockCount int) {
	tlog.Debug.Printf("parallelcrypto: scan of %d blocks, cpu_count=%d workers=%d aesni=%v avx2=%v",
		blockCount, pc.cpuCount, pc.WorkerCount(blockCount), pc.features.AESNI, pc.features.AVX2)
}
