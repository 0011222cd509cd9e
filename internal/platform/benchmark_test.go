package platform

import (
	"context"
	"testing"
)

func BenchmarkDetect(b *testing.B) {
	detector := NewDetector(nil)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = detector.Detect(ctx)
	}
}

func BenchmarkNormalizeArch(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = normalizeArch("x86_64")
	}
}

func BenchmarkCodenameLookup(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = DefaultCodenames.Lookup("10.15.7")
	}
}

func BenchmarkInfo_Key(b *testing.B) {
	info := &Info{OS: "darwin", Arch: "amd64", Codename: "sequoia"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = info.Key()
	}
}
