// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes RepositoryManager for cloning, branching, merging, and pushing
// working copies, along with remote URL parsing and formatting utilities
// consumed by the migration workflow.
package gitrepo
