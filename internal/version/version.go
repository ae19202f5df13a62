// Package version holds the single source of truth for the Loom release version.
package version

// Version is the Loom release version stamped into saved models and
// reported by the CLI.
const Version = "0.1.0"
