package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// OSCommandRunner executes shell commands through os/exec.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by the operating system.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes the supplied command and captures its output streams. A
// non-zero exit is reported through the result, not as an error; only
// failures to start or complete the process surface as errors.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	processHandle := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	processHandle.Dir = command.Details.WorkingDirectory
	processHandle.Env = mergeProcessEnvironment(command.Details.EnvironmentVariables)

	var capturedStandardOutput bytes.Buffer
	var capturedStandardError bytes.Buffer
	processHandle.Stdout = &capturedStandardOutput
	processHandle.Stderr = &capturedStandardError
	if len(command.Details.StandardInput) > 0 {
		processHandle.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	executionResult := ExecutionResult{}
	runError := processHandle.Run()
	executionResult.StandardOutput = capturedStandardOutput.String()
	executionResult.StandardError = capturedStandardError.String()

	if runError != nil {
		exitFailure := &exec.ExitError{}
		if !errors.As(runError, &exitFailure) {
			return ExecutionResult{}, runError
		}
		executionResult.ExitCode = exitFailure.ExitCode()
	}

	return executionResult, nil
}

func mergeProcessEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	mergedEnvironment := append([]string{}, os.Environ()...)
	for overrideKey, overrideValue := range overrides {
		mergedEnvironment = append(mergedEnvironment, fmt.Sprintf("%s=%s", overrideKey, overrideValue))
	}
	return mergedEnvironment
}
