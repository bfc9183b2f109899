package engines

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"

	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/logging"
)

// run and output are vars so tests can substitute a fake tool runner.
var (
	run    = runCommand
	output = runOutput
)

// runCommand executes an external tool, logging the command line at debug
// level. Failures carry trimmed stderr; the caller decides whether a
// retry (or fallback) makes sense.
func runCommand(ctx context.Context, component, name string, args ...string) error {
	logger := logging.GetLogger(component)
	logger.Debug().
		Str("command", name).
		Strs("args", args).
		Msg("Executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classifyRunError(name, err, stderr.String())
	}
	return nil
}

// runOutput executes an external tool and returns its trimmed stdout.
func runOutput(ctx context.Context, component, name string, args ...string) (string, error) {
	logger := logging.GetLogger(component)
	logger.Debug().
		Str("command", name).
		Strs("args", args).
		Msg("Executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", classifyRunError(name, err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// classifyRunError separates "the tool ran and reported failure" from
// "the tool could not be started at all". Only the former is transient:
// a missing binary will not appear between two attempts, so retries and
// fallbacks that re-invoke the same tool are pointless.
func classifyRunError(name string, err error, stderr string) error {
	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.Newf(errors.ErrEngineUnsupported, "%s is not installed", name)
	}
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = err.Error()
	}
	return errors.Newf(errors.ErrEngineTransient, "%s failed: %s", name, msg)
}
