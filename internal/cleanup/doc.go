// Package cleanup finds and deletes stale automation branches across every
// repository visible to the authenticated GitHub account. Branches created by
// the unattended coding agent carry a reserved name prefix; the engine
// evaluates each one against a whole-day staleness threshold and deletes the
// eligible ones, previewing by default. Catalog snapshots let a run operate on
// a saved listing instead of the live account.
package cleanup
