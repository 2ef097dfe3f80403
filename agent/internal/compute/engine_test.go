package compute

import (
	"errors"
	"testing"
	"time"

	"github.com/scanboard/scanboard/pkg/types"
)

// baseTime is a fixed reference point so all test timings are deterministic.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// tick returns baseTime advanced by n minutes.
func tick(n int) time.Time {
	return baseTime.Add(time.Duration(n) * time.Minute)
}

func audit(successes, warnings, errs, scanErrs uint) *types.AuditSummary {
	return &types.AuditSummary{
		SourceName: "prod",
		ClusterSummary: types.ClusterSummary{
			Results: types.ResultSummary{Totals: types.CountSummary{
				Successes: successes, Warnings: warnings, Errors: errs,
			}},
		},
		ScanResults: types.ScanCounts{Successes: 10, Errors: scanErrs},
	}
}

func TestEngine_FirstPoll(t *testing.T) {
	e := NewEngine(0)
	out := e.Process("src", audit(10, 2, 1, 0), nil, tick(0))

	if !out.Changed || !out.Ship {
		t.Errorf("first poll: Changed=%v Ship=%v, want both true", out.Changed, out.Ship)
	}
	if out.ErrorsDelta != 0 || out.WarningsDelta != 0 {
		t.Errorf("first poll deltas = %d/%d, want 0/0", out.ErrorsDelta, out.WarningsDelta)
	}
	if out.Score != 83 || out.Grade != "B" || out.State != StateDegraded {
		t.Errorf("first poll = score %d grade %q state %q, want 83 B degraded", out.Score, out.Grade, out.State)
	}
	if out.UptimePct != 100 {
		t.Errorf("UptimePct = %v, want 100", out.UptimePct)
	}
}

func TestEngine_Deltas(t *testing.T) {
	e := NewEngine(0)
	e.Process("src", audit(10, 2, 1, 1), nil, tick(0))
	out := e.Process("src", audit(9, 4, 0, 3), nil, tick(1))

	if out.ErrorsDelta != -1 {
		t.Errorf("ErrorsDelta = %d, want -1", out.ErrorsDelta)
	}
	if out.WarningsDelta != 2 {
		t.Errorf("WarningsDelta = %d, want 2", out.WarningsDelta)
	}
	if out.ScanErrorsDelta != 2 {
		t.Errorf("ScanErrorsDelta = %d, want 2", out.ScanErrorsDelta)
	}
	if !out.Changed {
		t.Error("Changed should be true when counts differ")
	}
}

func TestEngine_UnchangedIgnoresAuditTime(t *testing.T) {
	e := NewEngine(0)
	first := audit(10, 2, 1, 0)
	first.AuditTime = tick(0)
	e.Process("src", first, nil, tick(0))

	second := audit(10, 2, 1, 0)
	second.AuditTime = tick(5)
	out := e.Process("src", second, nil, tick(5))

	if out.Changed {
		t.Error("Changed should be false when only AuditTime moved")
	}
	if out.Ship {
		t.Error("Ship should be false with resend disabled and no change")
	}
}

func TestEngine_Resend(t *testing.T) {
	e := NewEngine(5 * time.Minute)
	e.Process("src", audit(10, 2, 1, 0), nil, tick(0))

	if out := e.Process("src", audit(10, 2, 1, 0), nil, tick(3)); out.Ship {
		t.Error("Ship at 3m should be false with a 5m resend")
	}
	if out := e.Process("src", audit(10, 2, 1, 0), nil, tick(5)); !out.Ship {
		t.Error("Ship at 5m should be true with a 5m resend")
	}
	// The resend clock restarts after shipping.
	if out := e.Process("src", audit(10, 2, 1, 0), nil, tick(6)); out.Ship {
		t.Error("Ship at 6m should be false after resending at 5m")
	}
}

func TestEngine_LoadFailure(t *testing.T) {
	e := NewEngine(0)
	e.Process("src", audit(10, 0, 0, 0), nil, tick(0))
	out := e.Process("src", nil, errors.New("connection refused"), tick(1))

	if out.State != StateUnknown {
		t.Errorf("State = %q, want %q", out.State, StateUnknown)
	}
	if out.ErrorMessage != "connection refused" {
		t.Errorf("ErrorMessage = %q", out.ErrorMessage)
	}
	if out.Summary != nil || out.Ship {
		t.Error("failed load should carry no summary and not ship")
	}
	if out.UptimePct != 50 {
		t.Errorf("UptimePct = %v, want 50", out.UptimePct)
	}

	// Recovery compares against the last successful poll.
	out = e.Process("src", audit(10, 0, 0, 0), nil, tick(2))
	if out.Changed {
		t.Error("Changed should be false when the recovered summary matches the last good one")
	}
}

func TestEngine_UptimeWindow(t *testing.T) {
	e := NewEngine(0)
	for i := 0; i < uptimeWindow; i++ {
		e.Process("src", nil, errors.New("down"), tick(i))
	}
	var out *Result
	for i := 0; i < uptimeWindow/2; i++ {
		out = e.Process("src", audit(1, 0, 0, 0), nil, tick(uptimeWindow+i))
	}
	if out.UptimePct != 50 {
		t.Errorf("UptimePct = %v, want 50 after sliding the window", out.UptimePct)
	}
}

func TestEngine_SourcesAreIndependent(t *testing.T) {
	e := NewEngine(0)
	e.Process("a", audit(10, 0, 0, 0), nil, tick(0))
	out := e.Process("b", audit(10, 0, 0, 0), nil, tick(0))
	if !out.Changed {
		t.Error("first poll of a second source should count as changed")
	}
}

func TestEngine_Forget(t *testing.T) {
	e := NewEngine(0)
	e.Process("src", audit(10, 0, 0, 0), nil, tick(0))
	e.Forget("src")
	out := e.Process("src", audit(10, 0, 0, 0), nil, tick(1))
	if !out.Changed {
		t.Error("a forgotten source should start over")
	}
}

func TestEngine_ClusterRenameIsChange(t *testing.T) {
	e := NewEngine(0)
	e.Process("src", audit(10, 0, 0, 0), nil, tick(0))
	renamed := audit(10, 0, 0, 0)
	renamed.DisplayName = "prod-eu"
	if out := e.Process("src", renamed, nil, tick(1)); !out.Changed {
		t.Error("a new cluster key should count as changed")
	}
}
