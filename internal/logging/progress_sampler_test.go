package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
		{"small bucket size", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "convert") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset() // should not panic
}

func TestProgressSampler_ShouldLogPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "extract") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "extract") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "convert") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "convert" {
		t.Errorf("lastPhase = %q, want convert", s.lastPhase)
	}
}

func TestProgressSampler_ShouldLogPhaseTrimsWhitespace(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(0, "  stitch  ")
	if s.lastPhase != "stitch" {
		t.Errorf("lastPhase = %q, want stitch (trimmed)", s.lastPhase)
	}
}

func TestProgressSampler_ShouldLogPercentBuckets(t *testing.T) {
	s := NewProgressSampler(5) // 5% buckets

	if !s.ShouldLog(0, "convert") {
		t.Error("0% should log")
	}
	if s.ShouldLog(3, "convert") {
		t.Error("3% should not log (same bucket)")
	}
	if !s.ShouldLog(5, "convert") {
		t.Error("5% should log (new bucket)")
	}
	if s.ShouldLog(7, "convert") {
		t.Error("7% should not log (same bucket)")
	}
	if !s.ShouldLog(10, "convert") {
		t.Error("10% should log (new bucket)")
	}
}

func TestProgressSampler_ShouldLogNegativePercent(t *testing.T) {
	s := NewProgressSampler(5)

	// First call with negative percent still logs via the phase change.
	if !s.ShouldLog(-1, "convert") {
		t.Error("first call should log even with negative percent")
	}
	if s.ShouldLog(-1, "convert") {
		t.Error("negative percent should not trigger bucket logging")
	}
}

func TestProgressSampler_ShouldLogCaps100Percent(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(95, "convert")
	if !s.ShouldLog(100, "convert") {
		t.Error("100% should log")
	}
	if s.ShouldLog(105, "convert") {
		t.Error("105% should not log again (same as 100% bucket)")
	}
}

func TestProgressSampler_ShouldLogBucketResetOnPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(50, "extract")
	s.ShouldLog(0, "convert")

	// 10% should log again because the phase change reset the bucket.
	if !s.ShouldLog(10, "convert") {
		t.Error("10% should log after phase change reset bucket")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "convert")

	s.Reset()

	if s.lastPhase != "" {
		t.Errorf("lastPhase = %q, want empty after reset", s.lastPhase)
	}
	if s.lastBucket != -1 {
		t.Errorf("lastBucket = %d, want -1 after reset", s.lastBucket)
	}
	if !s.ShouldLog(50, "convert") {
		t.Error("should log after reset")
	}
}

func TestProgressSampler_BucketSizes(t *testing.T) {
	t.Run("1% buckets", func(t *testing.T) {
		s := NewProgressSampler(1)
		s.ShouldLog(0, "convert")

		if !s.ShouldLog(1, "convert") {
			t.Error("1% should log")
		}
		if s.ShouldLog(1.5, "convert") {
			t.Error("1.5% should not log (same bucket)")
		}
		if !s.ShouldLog(2, "convert") {
			t.Error("2% should log")
		}
	})

	t.Run("25% buckets", func(t *testing.T) {
		s := NewProgressSampler(25)
		s.ShouldLog(0, "convert")

		if s.ShouldLog(20, "convert") {
			t.Error("20% should not log")
		}
		if !s.ShouldLog(25, "convert") {
			t.Error("25% should log")
		}
		if s.ShouldLog(49, "convert") {
			t.Error("49% should not log")
		}
		if !s.ShouldLog(50, "convert") {
			t.Error("50% should log")
		}
	})
}
