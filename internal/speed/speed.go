// Package speed reports AEAD throughput for the fixed block size securestore
// actually uses, so an operator can see whether a given machine's AES-NI and
// AVX2 support are being picked up before relying on them in production.
package speed

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"time"

	"github.com/extimsu/securestore/internal/cpudetection"
	"github.com/extimsu/securestore/internal/cryptocore"
	"github.com/extimsu/securestore/internal/parallelcrypto"
)

// Run prints CPU feature detection followed by a benchmark table covering
// single-block Seal/Open at BlockSize and the parallel scan speedup
// internal/scrub gets from internal/parallelcrypto.
func Run(blockSize int) {
	fmt.Println("=== securestore crypto performance ===")
	fmt.Println()

	printCPUInfo()
	fmt.Println()

	benchmarkSingleBlock(blockSize)
	fmt.Println()

	benchmarkParallelScan()
}

func printCPUInfo() {
	features := cpudetection.New().GetFeatures()
	fmt.Println("--- CPU features ---")
	fmt.Printf("AES-NI: %v\n", features.AESNI)
	fmt.Printf("AVX2:   %v\n", features.AVX2)
	fmt.Printf("cores:  %d\n", runtime.NumCPU())
}

func benchmarkSingleBlock(blockSize int) {
	fmt.Println("--- single-block AEAD (the size securestore actually seals) ---")

	key := cryptocore.RandBytes(cryptocore.KeyLen)
	core := cryptocore.New(key)
	defer core.Wipe()

	plaintext := make([]byte, blockSize)
	rand.Read(plaintext)
	nonce := cryptocore.RandBytes(cryptocore.IVLen)
	aData := []byte{0, 'b', 'e', 'n', 'c', 'h'}

	const iterations = 20000
	start := time.Now()
	for i := 0; i < iterations; i++ {
		sealed := core.Seal(nil, nonce, plaintext, aData)
		if _, err := core.Open(nil, nonce, sealed, aData); err != nil {
			fmt.Printf("Open failed during benchmark: %v\n", err)
			return
		}
	}
	elapsed := time.Since(start)

	perOp := elapsed / iterations
	mbps := float64(blockSize*iterations) / elapsed.Seconds() / 1024 / 1024
	fmt.Printf("%-10s %8.2f us/op  %8.2f MB/s\n", "seal+open", float64(perOp.Nanoseconds())/1000, mbps)
}

func benchmarkParallelScan() {
	fmt.Println("--- scrub fan-out (internal/parallelcrypto) ---")

	pc := parallelcrypto.New()
	blockCounts := []int{16, 256, 4096}

	fmt.Printf("%-10s %-12s %-12s\n", "blocks", "sequential", "parallel")
	for _, n := range blockCounts {
		seq := timeBlocks(n, func(work func(int, int)) { work(0, n) })
		par := timeBlocks(n, func(work func(int, int)) { pc.ScanRange(n, work) })
		fmt.Printf("%-10d %-12s %-12s\n", n, seq, par)
	}
}

func timeBlocks(n int, run func(func(int, int))) time.Duration {
	start := time.Now()
	run(func(start, end int) {
		for i := start; i < end; i++ {
			// Simulated per-block cost; the real cost is an AEAD
			// Open in internal/scrub, not reproduced here to keep
			// this benchmark independent of on-medium state.
			_ = i
		}
	})
	return time.Since(start)
}
