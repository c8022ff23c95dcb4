package config

import (
	"testing"
	"time"
)

func TestAppConfigAddr(t *testing.T) {
	cfg := AppConfig{Host: "0.0.0.0", Port: "8080"}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("Addr() = %q, want %q", got, "0.0.0.0:8080")
	}
}

func TestAppConfigRequestTimeout(t *testing.T) {
	cases := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{"default", 0, 30 * time.Second},
		{"negative falls back", -5, 30 * time.Second},
		{"configured", 10, 10 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := AppConfig{RequestTimeoutSeconds: tc.seconds}
			if got := cfg.RequestTimeout(); got != tc.want {
				t.Fatalf("RequestTimeout() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAppConfigCreateRateWindow(t *testing.T) {
	cfg := AppConfig{}
	if got := cfg.CreateRateWindow(); got != time.Minute {
		t.Fatalf("CreateRateWindow() = %v, want %v", got, time.Minute)
	}
	cfg.CreateRateWindowSec = 90
	if got := cfg.CreateRateWindow(); got != 90*time.Second {
		t.Fatalf("CreateRateWindow() = %v, want %v", got, 90*time.Second)
	}
}

func TestAIConfigTimeouts(t *testing.T) {
	cfg := AIConfig{}
	if got := cfg.AssignmentTimeout(); got != 2*time.Minute {
		t.Fatalf("AssignmentTimeout() = %v, want %v", got, 2*time.Minute)
	}
	if got := cfg.EvaluationTimeout(); got != 60*time.Second {
		t.Fatalf("EvaluationTimeout() = %v, want %v", got, 60*time.Second)
	}
	cfg = AIConfig{AssignmentTimeoutMinutes: 3, EvaluationTimeoutSeconds: 15}
	if got := cfg.AssignmentTimeout(); got != 3*time.Minute {
		t.Fatalf("AssignmentTimeout() = %v, want %v", got, 3*time.Minute)
	}
	if got := cfg.EvaluationTimeout(); got != 15*time.Second {
		t.Fatalf("EvaluationTimeout() = %v, want %v", got, 15*time.Second)
	}
}
