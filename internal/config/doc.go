// Package config loads and validates the TOML configuration that wires the
// Conveyor daemon together.
//
// Configuration is resolved once at startup and injected into every component;
// pipeline stages never read the environment or the filesystem for settings.
// A missing required endpoint (a path, queue name, or container) fails
// validation and aborts startup rather than surfacing as per-message errors.
package config
