package config

// Diff describes what changed between two configs. Every field tracked here
// is safe to hot-apply to a running core via its UpdateConfig method — no
// field requires tearing down in-flight state.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ReconcileChanged bool
	WindowChanged    bool
	CleanerChanged   bool
}

// DiffConfig compares old and new and reports which top-level sections
// changed. The reconciliation core applies the new values unconditionally on
// UpdateConfig; Diff exists so callers (e.g. a [Watcher]) can log what
// changed and decide whether to emit a config-reload event.
func DiffConfig(old, new *Config) Diff {
	d := Diff{}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Reconcile != new.Reconcile {
		d.ReconcileChanged = true
	}
	if old.Window != new.Window {
		d.WindowChanged = true
	}
	if old.Cleaner != new.Cleaner {
		d.CleanerChanged = true
	}
	return d
}
