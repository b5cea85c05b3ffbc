// Package migrate implements the dual-remote repository migration pipeline
// that clones from the primary host, reconciles the legacy host's history,
// and publishes the resulting default branch.
package migrate
