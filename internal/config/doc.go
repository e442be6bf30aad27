// Package config defines the packaging settings and provides helpers to
// load, validate and save them in YAML format.
//
// Every field has a default matching the npm/Elastic Beanstalk convention,
// so running without a settings file behaves exactly like the plain script.
package config
