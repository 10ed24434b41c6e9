// Package contacts queries the macOS address book for people with birthdays.
package contacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/conorfennell/birthdeck/internal/config"
	"github.com/conorfennell/birthdeck/internal/domain"
	"github.com/conorfennell/birthdeck/internal/parser"
)

// waitDelay bounds how long Run waits for output pipes after the command is
// killed, since children of the script may keep them open. Tests shorten it.
var waitDelay = 2 * time.Second

// Kind classifies an ExternalProcessError.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindExit
	KindTimeout
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindExit:
		return "non-zero exit"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ExternalProcessError reports a failure of the automation command itself.
// No partial result accompanies it.
type ExternalProcessError struct {
	Kind     Kind
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalProcessError) Error() string {
	switch e.Kind {
	case KindExit:
		msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
		if e.Stderr != "" {
			msg += ": " + e.Stderr
		}
		return msg
	case KindTimeout:
		return fmt.Sprintf("%s timed out: %v", e.Command, e.Err)
	case KindCanceled:
		return fmt.Sprintf("%s interrupted: %v", e.Command, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Command, e.Kind, e.Err)
	}
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Config holds the extractor settings.
type Config struct {
	Command       string
	Timeout       time.Duration
	SkipMalformed bool
}

// Extractor runs the address-book query and parses its output.
type Extractor struct {
	cfg    Config
	exec   executor
	logger *slog.Logger
}

// NewExtractor returns an Extractor that shells out to cfg.Command.
func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return newExtractor(cfg, &osExecutor{}, logger)
}

func newExtractor(cfg Config, exec executor, logger *slog.Logger) *Extractor {
	if cfg.Command == "" {
		cfg.Command = config.DefaultCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, exec: exec, logger: logger}
}

// Extract returns every contact with a birth date, in address-book order.
// Skipped reports how many malformed records were dropped in skip mode.
func (e *Extractor) Extract(ctx context.Context) (contacts []domain.Contact, skipped int, err error) {
	stdout, err := e.query(ctx)
	if err != nil {
		return nil, 0, err
	}

	res, err := parser.Parse(bytes.NewReader(stdout), parser.Options{
		SkipMalformed: e.cfg.SkipMalformed,
		Logger:        e.logger,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse %s output: %w", e.cfg.Command, err)
	}
	return res.Contacts, len(res.Skipped), nil
}

func (e *Extractor) query(ctx context.Context) ([]byte, error) {
	if _, err := e.exec.LookPath(e.cfg.Command); err != nil {
		return nil, &ExternalProcessError{Kind: KindNotFound, Command: e.cfg.Command, Err: err}
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	args := []string{"-l", "JavaScript", "-e", birthdayScript}

	e.logger.Debug("Querying contacts", "command", e.cfg.Command, "timeout", e.cfg.Timeout)
	err := e.exec.Run(ctx, e.cfg.Command, args, &stdout, &stderr)
	if ctxErr := ctx.Err(); ctxErr != nil {
		kind := KindCanceled
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return nil, &ExternalProcessError{Kind: kind, Command: e.cfg.Command, Err: ctxErr}
	}
	if err != nil {
		procErr := &ExternalProcessError{
			Kind:     KindExit,
			Command:  e.cfg.Command,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			procErr.ExitCode = exitErr.ExitCode()
		}
		return nil, procErr
	}

	return stdout.Bytes(), nil
}
