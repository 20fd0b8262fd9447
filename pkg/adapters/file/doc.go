// Package file stores sessions as JSON documents in a directory, one file
// per session. It suits single-process deployments that need sessions to
// survive restarts without running Redis.
package file
