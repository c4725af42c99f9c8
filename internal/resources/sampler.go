// Package resources samples the bot's own memory usage through two external
// helper programs.
//
// The helper protocol is fixed: the program receives the target process id
// as its last argument, writes a single unsigned integer (kilobytes)
// followed by a newline to standard output, and exits zero. Anything else is
// an error for that sample; there is no default and no caching.
package resources

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
)

// MemorySample is one reading of the process memory.
type MemorySample struct {
	TotalKB    uint64 // resident set
	BaselineKB uint64 // resident set minus shared and cached pages
}

// HelperCommand names a helper program and its leading arguments. The pid is
// appended as the final argument. Env entries are added to the inherited
// environment.
type HelperCommand struct {
	Path string
	Args []string
	Env  []string
}

// CommandFromArgv builds a HelperCommand from an argv slice.
func CommandFromArgv(argv []string) HelperCommand {
	if len(argv) == 0 {
		return HelperCommand{}
	}
	return HelperCommand{Path: argv[0], Args: append([]string(nil), argv[1:]...)}
}

func (h HelperCommand) String() string {
	return strings.Join(append([]string{h.Path}, h.Args...), " ")
}

// Sampler runs the total and baseline helpers.
type Sampler struct {
	Total    HelperCommand
	Baseline HelperCommand
	// Timeout bounds each helper run. Zero means no bound.
	Timeout time.Duration

	log *zap.Logger
}

// NewSampler creates a Sampler.
func NewSampler(total, baseline HelperCommand, timeout time.Duration, log *zap.Logger) *Sampler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sampler{Total: total, Baseline: baseline, Timeout: timeout, log: log.Named("resources")}
}

// SampleMemory spawns both helpers for pid and returns their readings.
// The helpers are independent and run concurrently.
func (s *Sampler) SampleMemory(ctx context.Context, pid int) (MemorySample, error) {
	var sample MemorySample

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.run(gctx, s.Total, pid)
		if err != nil {
			return fmt.Errorf("total memory helper: %w", err)
		}
		sample.TotalKB = v
		return nil
	})
	g.Go(func() error {
		v, err := s.run(gctx, s.Baseline, pid)
		if err != nil {
			return fmt.Errorf("baseline memory helper: %w", err)
		}
		sample.BaselineKB = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return MemorySample{}, err
	}

	s.log.Debug("memory sampled",
		zap.Int("pid", pid),
		zap.Uint64("total_kb", sample.TotalKB),
		zap.Uint64("baseline_kb", sample.BaselineKB))
	return sample, nil
}

// run executes one helper directly, without a shell, and parses its output.
func (s *Sampler) run(ctx context.Context, hc HelperCommand, pid int) (uint64, error) {
	if hc.Path == "" {
		return 0, arcerrors.New(arcerrors.ErrCodeSubprocessFailure, "helper command not configured")
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), hc.Args...), strconv.Itoa(pid))
	cmd := exec.CommandContext(ctx, hc.Path, args...)
	// Bound the wait for output pipes after a kill; a forked child may hold them.
	cmd.WaitDelay = s.Timeout
	if len(hc.Env) > 0 {
		cmd.Env = append(os.Environ(), hc.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		cause := err
		if ctx.Err() != nil {
			cause = fmt.Errorf("%w (after %s)", ctx.Err(), time.Since(start).Round(time.Millisecond))
		}
		return 0, arcerrors.WrapWithContext(arcerrors.ErrCodeSubprocessFailure,
			"helper did not complete", cause, map[string]any{
				"command": hc.String(),
				"stderr":  strings.TrimSpace(stderr.String()),
			})
	}

	return ParseOutput(stdout.Bytes())
}

// ParseOutput trims exactly one trailing line terminator ("\n" or "\r\n")
// and parses the rest as an unsigned decimal integer.
func ParseOutput(out []byte) (uint64, error) {
	text := string(out)
	switch {
	case strings.HasSuffix(text, "\r\n"):
		text = text[:len(text)-2]
	case strings.HasSuffix(text, "\n"):
		text = text[:len(text)-1]
	}

	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, arcerrors.WrapWithContext(arcerrors.ErrCodeOutputParseFailure,
			"helper output is not an unsigned integer", err, map[string]any{"output": text})
	}
	return v, nil
}
