package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/gm-pacific/nexahub/internal/execshell"
)

const (
	apiSubcommandConstant                    = "api"
	methodFlagConstant                       = "-X"
	deleteMethodConstant                     = "DELETE"
	acceptHeaderFlagConstant                 = "-H"
	acceptHeaderValueConstant                = "Accept: application/vnd.github+json"
	credentialEnvironmentVariableConstant    = "GH_TOKEN"
	repositoryFieldNameConstant              = "repository"
	branchFieldNameConstant                  = "branch"
	commitFieldNameConstant                  = "commitSHA"
	requiredValueMessageConstant             = "value required"
	executorNotConfiguredMessageConstant     = "github cli executor not configured"
	repositoriesPageSizeConstant             = 100
	listRepositoriesEndpointTemplateConstant = "user/repos?per_page=%d&page=%d"
	listBranchesEndpointTemplateConstant     = "repos/%s/branches?per_page=%d&page=%d"
	commitEndpointTemplateConstant           = "repos/%s/commits/%s"
	branchReferenceEndpointTemplateConstant  = "repos/%s/git/refs/heads/%s"
	operationErrorMessageTemplateConstant    = "%s operation failed"
	operationErrorWithCauseTemplateConstant  = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant    = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant        = "%s: %s"
	rateLimitedErrorTemplateConstant         = "%s rejected by GitHub rate limiting: %s"
	listRepositoriesOperationNameConstant    = OperationName("ListRepositories")
	listBranchesOperationNameConstant        = OperationName("ListBranches")
	commitTimestampOperationNameConstant     = OperationName("GetBranchCommitTimestamp")
	deleteBranchOperationNameConstant        = OperationName("DeleteBranch")
)

var rateLimitIndicatorConstants = []string{
	"rate limit",
	"HTTP 429",
}

var branchAbsenceIndicatorConstants = []string{
	"Reference does not exist",
	"HTTP 404",
	"HTTP 422",
}

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// Repository captures the repository attributes required by migration and cleanup workflows.
type Repository struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
}

// Branch captures minimal branch details returned by the GitHub API.
type Branch struct {
	Name      string
	CommitSHA string
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor   GitHubCommandExecutor
	credential string
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// RateLimitedError indicates GitHub rejected an operation because of API rate limiting.
type RateLimitedError struct {
	Operation OperationName
	Cause     error
}

// Error describes the rate limit rejection.
func (rateLimitError RateLimitedError) Error() string {
	return fmt.Sprintf(rateLimitedErrorTemplateConstant, rateLimitError.Operation, rateLimitError.Cause)
}

// Unwrap exposes the underlying cause.
func (rateLimitError RateLimitedError) Unwrap() error {
	return rateLimitError.Cause
}

// BranchNotFoundError indicates the targeted branch no longer exists on GitHub.
type BranchNotFoundError struct {
	Repository string
	Branch     string
}

// Error describes the missing branch.
func (notFoundError BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %s not found in %s", notFoundError.Branch, notFoundError.Repository)
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// NewClientWithCredential constructs a client that forwards the provided
// credential to every GitHub CLI invocation.
func NewClientWithCredential(executor GitHubCommandExecutor, credential string) (*Client, error) {
	client, creationError := NewClient(executor)
	if creationError != nil {
		return nil, creationError
	}
	client.credential = strings.TrimSpace(credential)
	return client, nil
}

// ListRepositories lazily enumerates every repository visible to the
// authenticated account, fetching pages on demand so callers can restart or
// abandon the walk without paying for the full listing.
func (client *Client) ListRepositories(executionContext context.Context) iter.Seq2[Repository, error] {
	return func(yield func(Repository, error) bool) {
		for pageNumber := 1; ; pageNumber++ {
			endpoint := fmt.Sprintf(listRepositoriesEndpointTemplateConstant, repositoriesPageSizeConstant, pageNumber)
			executionResult, executionError := client.runAPICommand(executionContext, endpoint, "")
			if executionError != nil {
				yield(Repository{}, client.classifyOperationError(listRepositoriesOperationNameConstant, executionError))
				return
			}

			var repositoriesPage []Repository
			decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &repositoriesPage)
			if decodingError != nil {
				yield(Repository{}, ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: decodingError})
				return
			}

			if len(repositoriesPage) == 0 {
				return
			}

			for _, repository := range repositoriesPage {
				if !yield(repository, nil) {
					return
				}
			}
		}
	}
}

// ListBranches returns every branch of the identified repository.
func (client *Client) ListBranches(executionContext context.Context, repository string) ([]Branch, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	collectedBranches := []Branch{}
	for pageNumber := 1; ; pageNumber++ {
		endpoint := fmt.Sprintf(listBranchesEndpointTemplateConstant, repositoryIdentifier, repositoriesPageSizeConstant, pageNumber)
		executionResult, executionError := client.runAPICommand(executionContext, endpoint, "")
		if executionError != nil {
			return nil, client.classifyOperationError(listBranchesOperationNameConstant, executionError)
		}

		var branchesPage []struct {
			Name   string `json:"name"`
			Commit struct {
				SHA string `json:"sha"`
			} `json:"commit"`
		}
		decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &branchesPage)
		if decodingError != nil {
			return nil, ResponseDecodingError{Operation: listBranchesOperationNameConstant, Cause: decodingError}
		}

		if len(branchesPage) == 0 {
			return collectedBranches, nil
		}

		for _, branchEntry := range branchesPage {
			collectedBranches = append(collectedBranches, Branch{Name: branchEntry.Name, CommitSHA: branchEntry.Commit.SHA})
		}
	}
}

// GetBranchCommitTimestamp resolves the committer timestamp of the provided commit.
func (client *Client) GetBranchCommitTimestamp(executionContext context.Context, repository string, commitSHA string) (time.Time, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return time.Time{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	commitIdentifier := strings.TrimSpace(commitSHA)
	if len(commitIdentifier) == 0 {
		return time.Time{}, InvalidInputError{FieldName: commitFieldNameConstant, Message: requiredValueMessageConstant}
	}

	endpoint := fmt.Sprintf(commitEndpointTemplateConstant, repositoryIdentifier, commitIdentifier)
	executionResult, executionError := client.runAPICommand(executionContext, endpoint, "")
	if executionError != nil {
		return time.Time{}, client.classifyOperationError(commitTimestampOperationNameConstant, executionError)
	}

	var response struct {
		Commit struct {
			Committer struct {
				Date time.Time `json:"date"`
			} `json:"committer"`
		} `json:"commit"`
	}
	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return time.Time{}, ResponseDecodingError{Operation: commitTimestampOperationNameConstant, Cause: decodingError}
	}

	return response.Commit.Committer.Date, nil
}

// DeleteBranch removes the named branch reference from the identified
// repository. Branches already removed surface as BranchNotFoundError so
// callers can treat them as settled.
func (client *Client) DeleteBranch(executionContext context.Context, repository string, branch string) error {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	branchName := strings.TrimSpace(branch)
	if len(branchName) == 0 {
		return InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	endpoint := fmt.Sprintf(branchReferenceEndpointTemplateConstant, repositoryIdentifier, branchName)
	_, executionError := client.runAPICommand(executionContext, endpoint, deleteMethodConstant)
	if executionError == nil {
		return nil
	}

	if describesAnyIndicator(executionError, branchAbsenceIndicatorConstants) {
		return BranchNotFoundError{Repository: repositoryIdentifier, Branch: branchName}
	}
	return client.classifyOperationError(deleteBranchOperationNameConstant, executionError)
}

func (client *Client) runAPICommand(executionContext context.Context, endpoint string, method string) (execshell.ExecutionResult, error) {
	commandArguments := []string{apiSubcommandConstant}
	if len(method) > 0 {
		commandArguments = append(commandArguments, methodFlagConstant, method)
	}
	commandArguments = append(commandArguments, endpoint, acceptHeaderFlagConstant, acceptHeaderValueConstant)

	commandDetails := execshell.CommandDetails{Arguments: commandArguments}
	if len(client.credential) > 0 {
		commandDetails.EnvironmentVariables = map[string]string{credentialEnvironmentVariableConstant: client.credential}
	}

	return client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
}

func (client *Client) classifyOperationError(operation OperationName, executionError error) error {
	if describesAnyIndicator(executionError, rateLimitIndicatorConstants) {
		return RateLimitedError{Operation: operation, Cause: executionError}
	}
	return OperationError{Operation: operation, Cause: executionError}
}

func describesAnyIndicator(executionError error, indicators []string) bool {
	var commandFailure execshell.CommandFailedError
	if !errors.As(executionError, &commandFailure) {
		return false
	}
	failureOutput := strings.ToLower(commandFailure.Result.StandardError + "\n" + commandFailure.Result.StandardOutput)
	for _, indicator := range indicators {
		if strings.Contains(failureOutput, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}
