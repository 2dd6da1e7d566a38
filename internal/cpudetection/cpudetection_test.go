package cpudetection

import (
	"testing"
)

func TestNewDetectsArchitecture(t *testing.T) {
	cd := New()
	if cd == nil {
		t.Fatal("New returned nil")
	}

	features := cd.GetFeatures()
	if features == nil {
		t.Fatal("GetFeatures returned nil")
	}
	if features.Arch == "" {
		t.Error("Arch should not be empty")
	}
}

func TestStringIncludesArchitecture(t *testing.T) {
	cd := New()
	s := cd.String()
	if s == "" {
		t.Error("String should not be empty")
	}
}

func BenchmarkNew(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		New()
	}
}
