// Package config loads the TOML configuration consumed by tarnish. Load reads
// the file through viper, applies defaults for the feed endpoints, logging and
// status API, validates field semantics and resolves the library, staging and
// cache directories to absolute paths. The resulting Config is treated as
// immutable once startup completes.
package config
