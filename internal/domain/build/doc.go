// Package build contains the core domain types of a packaging run.
//
// It defines Context (the paths and timestamp fixed at the start of a run)
// and the error kinds every pipeline step reports: external command
// failures, missing build output and manifest problems.
package build
