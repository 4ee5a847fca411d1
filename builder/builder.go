// builder/builder.go
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plumecms/plume-server/domain"
)

const (
	DefaultTimeout = 30 * time.Second

	// maxCaptureBytes caps stdout/stderr capture so a chatty build tool
	// cannot grow memory without bound.
	maxCaptureBytes = 1 << 20

	// waitDelay bounds how long Run may keep copying output after the
	// deadline kill. Without it a killed build whose children inherited
	// the output pipes would hold Build (and the busy flag) until every
	// descendant exits.
	waitDelay = 2 * time.Second
)

// ErrBuildInProgress is the rejection reason when a build is already in
// flight. Requests are rejected, never queued.
var ErrBuildInProgress = errors.New("build already in progress")

// commandContext is swapped out in tests.
var commandContext = exec.CommandContext

// defaultWarningPattern allow-lists stderr lines the site generator emits on
// otherwise successful runs.
var defaultWarningPattern = regexp.MustCompile(`(?i)^\s*warn`)

// Supervisor runs the external static-site generator, at most one invocation
// at a time. Instances are independent: each owns its own busy flag.
type Supervisor struct {
	siteDir string
	binary  string
	args    []string
	timeout time.Duration
	warnOK  *regexp.Regexp
	log     zerolog.Logger

	mu       sync.Mutex
	building bool
}

type Option func(*Supervisor)

func WithCommand(binary string, args ...string) Option {
	return func(s *Supervisor) {
		s.binary = binary
		s.args = args
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.log = log.With().Str("component", "builder").Logger()
	}
}

func WithWarningPattern(re *regexp.Regexp) Option {
	return func(s *Supervisor) { s.warnOK = re }
}

// NewSupervisor resolves siteDir to an absolute path and fails when it does
// not exist: a supervisor that cannot build is a startup defect, not a
// runtime condition.
func NewSupervisor(siteDir string, opts ...Option) (*Supervisor, error) {
	abs, err := filepath.Abs(siteDir)
	if err != nil {
		return nil, fmt.Errorf("resolve site dir %s: %w", siteDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("site dir %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site dir %s is not a directory", abs)
	}

	s := &Supervisor{
		siteDir: abs,
		binary:  "hugo",
		timeout: DefaultTimeout,
		warnOK:  defaultWarningPattern,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Build runs one site build in the site directory and reports the outcome.
// A call arriving while another build is running is rejected immediately with
// ErrBuildInProgress; that is the only non-nil error — a build that ran and
// failed is an expected outcome carried in the result, not an error.
func (s *Supervisor) Build(ctx context.Context) (domain.BuildResult, error) {
	if !s.tryAcquire() {
		return domain.BuildResult{Error: ErrBuildInProgress.Error()}, ErrBuildInProgress
	}
	defer s.release()

	log := s.log.With().Str("build_id", uuid.NewString()).Logger()
	log.Info().Str("dir", s.siteDir).Str("command", s.binary).Msg("starting site build")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stdout := boundedBuffer{max: maxCaptureBytes}
	stderr := boundedBuffer{max: maxCaptureBytes}

	cmd := commandContext(ctx, s.binary, s.args...)
	cmd.Dir = s.siteDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		log.Error().Dur("elapsed", elapsed).Msg("site build timed out")
		output := stderr.String()
		if output == "" {
			output = stdout.String()
		}
		return domain.BuildResult{
			Output: output,
			Error:  fmt.Sprintf("build timed out after %s", s.timeout),
		}, nil
	}
	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("site build failed")
		return domain.BuildResult{
			Output: stderr.String(),
			Error:  fmt.Sprintf("build command failed: %v", err),
		}, nil
	}
	if line := s.firstHardError(stderr.String()); line != "" {
		log.Error().Str("stderr", line).Dur("elapsed", elapsed).Msg("site build reported errors")
		return domain.BuildResult{
			Output: stderr.String(),
			Error:  fmt.Sprintf("build reported errors: %s", line),
		}, nil
	}

	log.Info().Dur("elapsed", elapsed).Msg("site build finished")
	return domain.BuildResult{Success: true, Output: stdout.String()}, nil
}

func (s *Supervisor) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.building {
		return false
	}
	s.building = true
	return true
}

func (s *Supervisor) release() {
	s.mu.Lock()
	s.building = false
	s.mu.Unlock()
}

// firstHardError returns the first stderr line that is not an allow-listed
// warning; empty when stderr is clean.
func (s *Supervisor) firstHardError(stderrOut string) string {
	for _, line := range strings.Split(stderrOut, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || s.warnOK.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

// boundedBuffer keeps the first max bytes written and discards the rest.
type boundedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := b.max - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
		}
		b.buf.Write(p)
	}
	return n, nil
}

func (b *boundedBuffer) String() string { return b.buf.String() }
