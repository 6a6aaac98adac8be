// Package renderer drives the external scene renderer.
package renderer

import (
	"context"
	"strings"

	contracts "animrender/internal/contracts/renderer/v0"
	"animrender/internal/jobs"
	"animrender/internal/pkg/errors"
	"animrender/internal/worker/command"
)

type Client interface {
	Render(ctx context.Context, req Request) (command.Result, error)
	Version(ctx context.Context) (string, error)
}

// Request renders contracts.ScriptFile found in Workspace.
type Request struct {
	Workspace string
	Quality   string
}

type CLIClient struct {
	bin    string
	runner command.Runner
}

func NewCLIClient(bin string, runner command.Runner) *CLIClient {
	if runner == nil {
		runner = command.ExecRunner{}
	}
	return &CLIClient{bin: bin, runner: runner}
}

// Command returns the invocation used for req.
func (c *CLIClient) Command(req Request) command.Spec {
	return command.Spec{
		Name: c.bin,
		Args: []string{contracts.QualityFlag(jobs.Quality(req.Quality)), contracts.ScriptFile, contracts.SceneName},
		Dir:  req.Workspace,
	}
}

// Render runs the renderer. On failure the returned error carries
// CodeRenderFailed and the renderer diagnostic as its message.
func (c *CLIClient) Render(ctx context.Context, req Request) (command.Result, error) {
	res, err := c.runner.Run(ctx, c.Command(req))
	if err != nil {
		return res, errors.WrapWithCode(err, errors.CodeRenderFailed, "renderer.render", command.Diagnostic(res, err)).
			WithField("exit_code", res.ExitCode)
	}
	return res, nil
}

// Version asks the renderer binary for its version string.
func (c *CLIClient) Version(ctx context.Context) (string, error) {
	res, err := c.runner.Run(ctx, command.Spec{Name: c.bin, Args: []string{"--version"}})
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, "renderer.version", command.Diagnostic(res, err))
	}
	return strings.TrimSpace(res.Stdout), nil
}
