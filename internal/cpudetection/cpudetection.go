// Package cpudetection reports the AES-NI/AVX/NEON features of the host
// CPU. securestore doesn't switch AEAD backends on this the way a general
// crypto library might — internal/cryptocore is always AES-256-GCM — so
// this is diagnostic only: internal/speed prints it for an operator
// sanity-checking throughput, and internal/parallelcrypto uses it to scale
// how many workers a scrub pass spins up.
package cpudetection

import (
	"runtime"
	"strings"

	"github.com/extimsu/securestore/internal/tlog"
)

// CPUFeatures is a snapshot of the features relevant to AES-GCM throughput.
type CPUFeatures struct {
	AESNI bool
	AVX   bool
	AVX2  bool
	NEON  bool
	Arch  string
	Model string
}

// CPUDetector holds one detected CPUFeatures snapshot.
type CPUDetector struct {
	features *CPUFeatures
}

// New detects the current host's features.
func New() *CPUDetector {
	cd := &CPUDetector{}
	cd.detectFeatures()
	return cd
}

// GetFeatures returns the detected features.
func (cd *CPUDetector) GetFeatures() *CPUFeatures {
	return cd.features
}

func (cd *CPUDetector) detectFeatures() {
	cd.features = &CPUFeatures{Arch: runtime.GOARCH}

	// No cpuid/sysctl probe wired in: treat modern amd64 as AES-NI/AVX2
	// capable and arm64 as NEON capable, the same heuristic gocryptfs's
	// upstream uses pending a real probe. Wrong on an old or exotic core,
	// but only ever used for a worker-count hint and a bench printout,
	// neither of which is safety-relevant if it's off.
	switch cd.features.Arch {
	case "amd64":
		cd.features.AESNI = true
		cd.features.AVX = true
		cd.features.AVX2 = true
	case "arm64":
		cd.features.NEON = true
		if runtime.GOOS == "darwin" {
			cd.features.Model = "Apple Silicon"
		}
	}

	tlog.Debug.Printf("cpudetection: arch=%s aesni=%v avx=%v avx2=%v neon=%v",
		cd.features.Arch, cd.features.AESNI, cd.features.AVX, cd.features.AVX2, cd.features.NEON)
}

// String returns a human-readable feature summary.
func (cd *CPUDetector) String() string {
	f := cd.features
	parts := []string{"Arch: " + f.Arch}
	if f.AESNI {
		parts = append(parts, "AES-NI")
	}
	if f.AVX {
		parts = append(parts, "AVX")
	}
	if f.AVX2 {
		parts = append(parts, "AVX2")
	}
	if f.NEON {
		parts = append(parts, "NEON")
	}
	if f.Model != "" {
		parts = append(parts, "Model: "+f.Model)
	}
	return strings.Join(parts, ", ")
}
