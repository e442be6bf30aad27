// Package version exposes build metadata of eb-packager.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render them for the version subcommand and logs.
package version
