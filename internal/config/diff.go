package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ThresholdChanged bool
	NewThreshold     float64

	AliasFileChanged bool
	NewAliasFile     string

	// RestartRequired names the sections that changed but are only read at
	// startup.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.ThresholdChanged && !d.AliasFileChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Structuring.ResolverThreshold != new.Structuring.ResolverThreshold {
		d.ThresholdChanged = true
		d.NewThreshold = new.Structuring.ResolverThreshold
	}
	if old.Catalog.AliasFile != new.Catalog.AliasFile {
		d.AliasFileChanged = true
		d.NewAliasFile = new.Catalog.AliasFile
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.RequestTimeout != new.Server.RequestTimeout ||
		!reflect.DeepEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) || !reflect.DeepEqual(old.LLMFallbacks, new.LLMFallbacks) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	oldS, newS := old.Structuring, new.Structuring
	oldS.ResolverThreshold, newS.ResolverThreshold = 0, 0
	if !reflect.DeepEqual(oldS, newS) {
		d.RestartRequired = append(d.RestartRequired, "structuring")
	}
	oldC, newC := old.Catalog, new.Catalog
	oldC.AliasFile, newC.AliasFile = "", ""
	if oldC != newC {
		d.RestartRequired = append(d.RestartRequired, "catalog")
	}
	if old.Idempotency != new.Idempotency {
		d.RestartRequired = append(d.RestartRequired, "idempotency")
	}
	return d
}
