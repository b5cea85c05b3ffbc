package gitrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/gm-pacific/nexahub/internal/execshell"
)

const (
	gitCloneCommandConstant            = "clone"
	gitRemoteCommandConstant           = "remote"
	gitRemoteAddSubcommandConstant     = "add"
	gitFetchCommandConstant            = "fetch"
	gitLFSCommandConstant              = "lfs"
	gitLFSAllFlagConstant              = "--all"
	gitLSRemoteCommandConstant         = "ls-remote"
	gitSymrefFlagConstant              = "--symref"
	gitHeadReferenceConstant           = "HEAD"
	gitBranchCommandConstant           = "branch"
	gitTrackFlagConstant               = "--track"
	gitCheckoutCommandConstant         = "checkout"
	gitCreateBranchFlagConstant        = "-b"
	gitMergeCommandConstant            = "merge"
	gitAllowUnrelatedFlagConstant      = "--allow-unrelated-histories"
	gitNoEditFlagConstant              = "--no-edit"
	gitMergeAbortFlagConstant          = "--abort"
	gitRevParseCommandConstant         = "rev-parse"
	gitVerifyFlagConstant              = "--verify"
	gitQuietFlagConstant               = "--quiet"
	gitStatusCommandConstant           = "status"
	gitPorcelainFlagConstant           = "--porcelain"
	gitAddCommandConstant              = "add"
	gitAddAllFlagConstant              = "--all"
	gitCommitCommandConstant           = "commit"
	gitCommitMessageFlagConstant       = "-m"
	gitPushCommandConstant             = "push"
	gitSetUpstreamFlagConstant         = "-u"
	localBranchReferencePrefixConstant = "refs/heads/"
	symrefLinePrefixConstant           = "ref: refs/heads/"
)

// ErrExecutorNotConfigured indicates the repository manager was constructed without a git executor.
var ErrExecutorNotConfigured = errors.New("git executor not configured")

// GitExecutor runs git commands on behalf of the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RemoteDefaultBranch reports the default branch advertised by a remote, when one exists.
type RemoteDefaultBranch struct {
	Found      bool
	BranchName string
}

// RepositoryManager performs structured git operations against local working copies.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager backed by the provided executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// Clone copies the repository at remoteURL into targetDirectory.
func (manager *RepositoryManager) Clone(executionContext context.Context, remoteURL string, targetDirectory string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments: []string{gitCloneCommandConstant, remoteURL, targetDirectory},
	})
	return executionError
}

// AddRemote registers remoteURL under remoteName inside the repository at repositoryPath.
func (manager *RepositoryManager) AddRemote(executionContext context.Context, repositoryPath string, remoteName string, remoteURL string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteCommandConstant, gitRemoteAddSubcommandConstant, remoteName, remoteURL},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// ListRemotes returns the names of remotes configured in the repository at repositoryPath.
func (manager *RepositoryManager) ListRemotes(executionContext context.Context, repositoryPath string) ([]string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteCommandConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return nil, executionError
	}

	remoteNames := []string{}
	for _, outputLine := range strings.Split(executionResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if len(trimmedLine) > 0 {
			remoteNames = append(remoteNames, trimmedLine)
		}
	}
	return remoteNames, nil
}

// Fetch downloads objects and refs from the named remote.
func (manager *RepositoryManager) Fetch(executionContext context.Context, repositoryPath string, remoteName string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitFetchCommandConstant, remoteName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// FetchLargeFileObjects downloads all large-file content referenced by the named remote.
func (manager *RepositoryManager) FetchLargeFileObjects(executionContext context.Context, repositoryPath string, remoteName string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitLFSCommandConstant, gitFetchCommandConstant, gitLFSAllFlagConstant, remoteName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// LookupRemoteDefaultBranch asks the named remote which branch HEAD points at.
// Remotes without any commits advertise no symbolic reference, which is
// reported as Found being false rather than an error.
func (manager *RepositoryManager) LookupRemoteDefaultBranch(executionContext context.Context, repositoryPath string, remoteName string) (RemoteDefaultBranch, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitLSRemoteCommandConstant, gitSymrefFlagConstant, remoteName, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return RemoteDefaultBranch{}, executionError
	}

	for _, outputLine := range strings.Split(executionResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if !strings.HasPrefix(trimmedLine, symrefLinePrefixConstant) {
			continue
		}
		referenceFields := strings.Fields(strings.TrimPrefix(trimmedLine, "ref: "))
		if len(referenceFields) == 0 {
			continue
		}
		branchName := strings.TrimPrefix(referenceFields[0], localBranchReferencePrefixConstant)
		if len(branchName) > 0 {
			return RemoteDefaultBranch{Found: true, BranchName: branchName}, nil
		}
	}

	return RemoteDefaultBranch{}, nil
}

// BranchExists reports whether a local branch with the given name exists.
func (manager *RepositoryManager) BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseCommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, localBranchReferencePrefixConstant + branchName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// HasCommits reports whether the repository has any commit reachable from HEAD.
func (manager *RepositoryManager) HasCommits(executionContext context.Context, repositoryPath string) (bool, error) {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseCommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// CheckCleanWorktree reports whether the working tree has no staged or unstaged changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitStatusCommandConstant, gitPorcelainFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return false, executionError
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) == 0, nil
}

// CreateBranch creates a local branch without switching to it.
func (manager *RepositoryManager) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitBranchCommandConstant, branchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// CreateTrackingBranch creates a local branch tracking the provided remote reference.
func (manager *RepositoryManager) CreateTrackingBranch(executionContext context.Context, repositoryPath string, branchName string, remoteReference string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitBranchCommandConstant, gitTrackFlagConstant, branchName, remoteReference},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// Checkout switches the working tree to an existing branch.
func (manager *RepositoryManager) Checkout(executionContext context.Context, repositoryPath string, branchName string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutCommandConstant, branchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// CheckoutNew creates a branch and switches the working tree to it.
func (manager *RepositoryManager) CheckoutNew(executionContext context.Context, repositoryPath string, branchName string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutCommandConstant, gitCreateBranchFlagConstant, branchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// Merge joins the provided reference into the current branch, accepting
// unrelated histories so freshly initialized repositories can absorb imports.
func (manager *RepositoryManager) Merge(executionContext context.Context, repositoryPath string, reference string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitMergeCommandConstant, gitAllowUnrelatedFlagConstant, gitNoEditFlagConstant, reference},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// AbortMerge abandons an in-progress merge and restores the pre-merge state.
func (manager *RepositoryManager) AbortMerge(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitMergeCommandConstant, gitMergeAbortFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// StageAll stages every change in the working tree.
func (manager *RepositoryManager) StageAll(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitAddCommandConstant, gitAddAllFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// Commit records staged changes with the provided message.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, commitMessage string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCommitCommandConstant, gitCommitMessageFlagConstant, commitMessage},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// Push uploads the named branch to the named remote, optionally recording it
// as the branch upstream.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string, setUpstream bool) error {
	pushArguments := []string{gitPushCommandConstant}
	if setUpstream {
		pushArguments = append(pushArguments, gitSetUpstreamFlagConstant)
	}
	pushArguments = append(pushArguments, remoteName, branchName)

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        pushArguments,
		WorkingDirectory: repositoryPath,
	})
	return executionError
}
