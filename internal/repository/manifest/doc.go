// Package manifest merges package descriptors.
//
// The root package.json is copied field by field, in its original key order,
// except for "scripts", which is taken wholesale from the Elastic Beanstalk
// descriptor. No other field of that descriptor is read.
package manifest
