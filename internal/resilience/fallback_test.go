package resilience

import (
	"errors"
	"testing"
	"time"
)

func newStringGroup(cfg CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{CircuitBreaker: cfg})
	fg.AddFallback("backup", "backup")
	return fg
}

func TestFallbackGroupPrefersPrimary(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{MaxFailures: 3})

	var used string
	if err := fg.Execute(func(v string) error { used = v; return nil }); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if used != "primary" {
		t.Fatalf("used = %q, want primary", used)
	}
}

func TestFallbackGroupFailsOver(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{MaxFailures: 3})

	var used string
	err := fg.Execute(func(v string) error {
		if v == "primary" {
			return errBackendDown
		}
		used = v
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if used != "backup" {
		t.Fatalf("used = %q, want backup", used)
	}
}

func TestFallbackGroupReportsTotalFailure(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{MaxFailures: 3})

	err := fg.Execute(func(string) error { return errBackendDown })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Execute() = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroupSkipsOpenBreaker(t *testing.T) {
	fg := newStringGroup(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	// Trip the primary's breaker; the backup absorbs the traffic meanwhile.
	for i := 0; i < 2; i++ {
		_ = fg.Execute(func(v string) error {
			if v == "primary" {
				return errBackendDown
			}
			return nil
		})
	}

	primaryCalled := false
	var used string
	err := fg.Execute(func(v string) error {
		if v == "primary" {
			primaryCalled = true
		}
		used = v
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if primaryCalled {
		t.Fatal("primary with open breaker must not be called")
	}
	if used != "backup" {
		t.Fatalf("used = %q, want backup", used)
	}
}

func TestExecuteWithResult(t *testing.T) {
	tests := []struct {
		name       string
		primaryErr error
		backupErr  error
		want       string
		wantErr    error
	}{
		{name: "primary answers", want: "from primary"},
		{name: "backup answers", primaryErr: errBackendDown, want: "from backup"},
		{name: "nobody answers", primaryErr: errBackendDown, backupErr: errBackendDown, wantErr: ErrAllFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := newStringGroup(CircuitBreakerConfig{MaxFailures: 3})

			got, err := ExecuteWithResult(fg, func(v string) (string, error) {
				if v == "primary" {
					return "from primary", tt.primaryErr
				}
				return "from backup", tt.backupErr
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExecuteWithResult() = %v", err)
			}
			if got != tt.want {
				t.Fatalf("result = %q, want %q", got, tt.want)
			}
		})
	}
}
