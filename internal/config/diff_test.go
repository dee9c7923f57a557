package config

import "testing"

func TestDiffConfig_NoChange(t *testing.T) {
	a := Defaults()
	b := Defaults()
	d := DiffConfig(&a, &b)
	if d.LogLevelChanged || d.ReconcileChanged || d.WindowChanged || d.CleanerChanged {
		t.Errorf("got %+v, want no changes detected", d)
	}
}

func TestDiffConfig_DetectsLogLevelChange(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.Server.LogLevel = LogLevelDebug

	d := DiffConfig(&a, &b)
	if !d.LogLevelChanged || d.NewLogLevel != LogLevelDebug {
		t.Errorf("got %+v, want LogLevelChanged with NewLogLevel=debug", d)
	}
}

func TestDiffConfig_DetectsReconcileChange(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.Reconcile.StabilityThreshold = 99

	d := DiffConfig(&a, &b)
	if !d.ReconcileChanged {
		t.Error("expected ReconcileChanged")
	}
	if d.WindowChanged || d.CleanerChanged {
		t.Errorf("unrelated sections flagged as changed: %+v", d)
	}
}

func TestDiffConfig_DetectsWindowAndCleanerChange(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.Window.LCSeconds = b.Window.LCMax
	b.Cleaner.RepetitionMinWords = 1

	d := DiffConfig(&a, &b)
	if !d.WindowChanged || !d.CleanerChanged {
		t.Errorf("got %+v, want both WindowChanged and CleanerChanged", d)
	}
}
