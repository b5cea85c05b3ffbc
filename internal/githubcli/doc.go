// Package githubcli wraps the GitHub CLI to enumerate repositories and
// branches, resolve commit timestamps, and delete branch references.
//
// All invocations flow through execshell, and failures are classified into
// typed errors so callers can distinguish rate limiting and already-deleted
// branches from genuine faults.
package githubcli
