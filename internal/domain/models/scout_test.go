package models

import (
	"testing"
	"time"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"15s", 15 * time.Second},
		{"5m", 5 * time.Minute},
		{"1h", time.Hour},
		{"120s", 120 * time.Second},
		{"", DefaultScanInterval},
		{"s", DefaultScanInterval},
		{"abc", DefaultScanInterval},
		{"10d", DefaultScanInterval},
		{"-5s", DefaultScanInterval},
		{"0m", DefaultScanInterval},
	}
	for _, c := range cases {
		if got := ParseInterval(c.in); got != c.want {
			t.Fatalf("ParseInterval(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestScoutScanInterval(t *testing.T) {
	s := &Scout{Interval: "30s"}
	if got := s.ScanInterval(); got != 30*time.Second {
		t.Fatalf("got %v", got)
	}
}

func TestDefaultConfigPerStrategy(t *testing.T) {
	cfg := DefaultConfig(StrategyEMACrossover)
	if cfg["fastEMA"] != 20 || cfg["slowEMA"] != 50 {
		t.Fatalf("ema config = %v", cfg)
	}
	if cfg := DefaultConfig(StrategyVolumeBreakout); cfg["volumeMultiplier"] == nil {
		t.Fatalf("volume config = %v", cfg)
	}
	if cfg := DefaultConfig(Strategy("UNKNOWN")); len(cfg) != 0 {
		t.Fatalf("unknown strategy should have empty config, got %v", cfg)
	}
}
