// Package execshell runs external git and GitHub CLI commands through a
// shared executor that validates dependencies, logs command lifecycle
// events, and converts non-zero exits and launch failures into typed errors.
package execshell
