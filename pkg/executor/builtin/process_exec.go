package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/smilemakc/mbflow/pkg/executor"
)

// PythonExecuteExecutor runs a Python script in a subprocess, following the
// stdio-subprocess idiom (exec.CommandContext, piped stdout/stderr, context
// cancellation tears the child down) used for isolated tool invocation
// elsewhere in the ecosystem. It honors the catalog's python_execute
// isolation: worker declaration by never sharing state across invocations -
// each Execute call starts and tears down its own interpreter.
type PythonExecuteExecutor struct {
	*executor.BaseExecutor
	interpreter string
}

// NewPythonExecuteExecutor creates a python_execute executor. interpreter
// defaults to "python3" when empty.
func NewPythonExecuteExecutor(interpreter string) *PythonExecuteExecutor {
	if interpreter == "" {
		interpreter = "python3"
	}
	return &PythonExecuteExecutor{
		BaseExecutor: executor.NewBaseExecutor("python_execute"),
		interpreter:  interpreter,
	}
}

// Execute runs config["script"] to completion and returns its stdout and exit code.
func (e *PythonExecuteExecutor) Execute(ctx context.Context, config map[string]any, _ any) (any, error) {
	script, err := e.GetString(config, "script")
	if err != nil {
		return nil, err
	}

	args := []string{"-c", script}
	if extra, _ := e.GetMap(config, "args"); extra != nil {
		for k, v := range extra {
			args = append(args, fmt.Sprintf("--%s=%v", k, v))
		}
	}

	cmd := exec.CommandContext(ctx, e.interpreter, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("python_execute: %w", runErr)
		}
	}

	output := map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}
	if exitCode != 0 {
		return output, fmt.Errorf("python_execute: script exited with code %d", exitCode)
	}
	return output, nil
}

// Validate checks that script is present.
func (e *PythonExecuteExecutor) Validate(config map[string]any) error {
	return e.ValidateRequired(config, "script")
}

// TerminalExecutor runs a shell command in a subprocess, isolated the same
// way PythonExecuteExecutor is.
type TerminalExecutor struct {
	*executor.BaseExecutor
	shell string
}

// NewTerminalExecutor creates a terminal executor. shell defaults to
// "/bin/sh" when empty.
func NewTerminalExecutor(shell string) *TerminalExecutor {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &TerminalExecutor{
		BaseExecutor: executor.NewBaseExecutor("terminal"),
		shell:        shell,
	}
}

// Execute runs config["command"] to completion and returns its stdout and exit code.
func (e *TerminalExecutor) Execute(ctx context.Context, config map[string]any, _ any) (any, error) {
	command, err := e.GetString(config, "command")
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("terminal: %w", runErr)
		}
	}

	output := map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}
	if exitCode != 0 {
		return output, fmt.Errorf("terminal: command exited with code %d", exitCode)
	}
	return output, nil
}

// Validate checks that command is present.
func (e *TerminalExecutor) Validate(config map[string]any) error {
	return e.ValidateRequired(config, "command")
}
