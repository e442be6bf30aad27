// Package common holds helpers shared by several services.
//
// It provides the Runner seam through which every external command is
// executed, a shell-backed implementation, and a recording fake for tests.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
