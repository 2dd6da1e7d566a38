package parallelcrypto

import (
	"sync"
	"testing"
)

func TestNewReportsEnabledByDefault(t *testing.T) {
	pc := New()
	if pc == nil {
		t.Fatal("New returned nil")
	}
	if !pc.IsEnabled() {
		t.Error("ParallelCrypto should be enabled by default")
	}
}

func TestShouldUseParallelRespectsThreshold(t *testing.T) {
	pc := New()
	// Pin the core count so only the block threshold decides the result.
	pc.cpuCount = MinWorkerCPUs

	if !pc.ShouldUseParallel(ScanParallelThreshold) {
		t.Error("should use parallel at the threshold block count")
	}
	if pc.ShouldUseParallel(ScanParallelThreshold - 1) {
		t.Error("should not use parallel below the threshold")
	}
}

func TestDisableForcesSequential(t *testing.T) {
	pc := New()
	pc.Disable()

	if pc.IsEnabled() {
		t.Error("ParallelCrypto should report disabled after Disable")
	}
	if pc.ShouldUseParallel(10000) {
		t.Error("should never use parallel once disabled")
	}
	if workers := pc.WorkerCount(10000); workers != 1 {
		t.Errorf("disabled WorkerCount = %d, want 1", workers)
	}
}

func TestScanRangeCoversEveryBlockBelowThreshold(t *testing.T) {
	pc := New()
	blockCount := ScanParallelThreshold - 1
	seen := make([]bool, blockCount)

	pc.ScanRange(blockCount, func(start, end int) {
		for i := start; i < end; i++ {
			seen[i] = true
		}
	})

	for i, ok := range seen {
		if !ok {
			t.Errorf("block %d not scanned", i)
		}
	}
}

func TestScanRangeCoversEveryBlockAboveThreshold(t *testing.T) {
	pc := New()
	blockCount := ScanParallelThreshold * 3
	var mu sync.Mutex
	seen := make([]bool, blockCount)

	pc.ScanRange(blockCount, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		for i := start; i < end; i++ {
			seen[i] = true
		}
	})

	for i, ok := range seen {
		if !ok {
			t.Errorf("block %d not scanned", i)
		}
	}
}

func TestWorkerCountStaysWithinBounds(t *testing.T) {
	pc := New()

	cases := []struct {
		blockCount int
		max        int
	}{
		{1, 1},
		{ScanParallelThreshold - 1, 1},
		{ScanParallelThreshold, MaxScanWorkers},
		{100000, MaxScanWorkers},
	}

	for _, tc := range cases {
		workers := pc.WorkerCount(tc.blockCount)
		if workers < 1 || workers > tc.max {
			t.Errorf("block count %d: workers=%d, want in [1, %d]", tc.blockCount, workers, tc.max)
		}
	}
}
