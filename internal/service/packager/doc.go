// Package packager builds a Node.js project and packs its output into a
// deployable Elastic Beanstalk archive.
//
// A run installs dependencies, builds, writes a trimmed package.json and the
// lockfile into the dist directory, reinstalls dependencies there, zips the
// result and leaves the archive alone in dist. Every step is fatal on failure.
package packager
