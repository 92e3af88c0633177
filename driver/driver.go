// File: driver/driver.go

// Package driver launches and supervises local WebDriver server binaries
// such as chromedriver and geckodriver, so a client can connect without an
// externally managed Selenium installation.
package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/phayes/freeport"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	defaultStartTimeout = 20 * time.Second
	stopGracePeriod     = 5 * time.Second
	probeInterval       = 250 * time.Millisecond
)

var (
	// ErrAlreadyRunning is returned by Start when the service holds a live
	// process.
	ErrAlreadyRunning = errors.New("driver already running")
	// ErrNotRunning is returned by Stop when there is nothing to stop.
	ErrNotRunning = errors.New("driver not running")
)

// kind selects the command line dialect of the managed binary.
type kind int

const (
	kindChrome kind = iota
	kindGecko
)

// Service supervises one WebDriver server process on a local port.
type Service struct {
	kind kind
	name string
	path string
	port int

	logPath      string
	startTimeout time.Duration
	extraArgs    []string
	log          *zap.Logger
	fs           afero.Fs

	mu   sync.Mutex
	cmd  *exec.Cmd
	sink afero.File
	exit *exitWatch
}

// exitWatch owns the process's single Wait call. done is closed once the
// process has been reaped; err may be read only after that.
type exitWatch struct {
	done chan struct{}
	err  error
}

func watchExit(cmd *exec.Cmd) *exitWatch {
	w := &exitWatch{done: make(chan struct{})}
	go func() {
		w.err = cmd.Wait()
		close(w.done)
	}()
	return w
}

// wait blocks until the process has been reaped and returns the Wait result.
func (w *exitWatch) wait() error {
	<-w.done
	return w.err
}

// Option customises a Service at construction time.
type Option func(*Service)

// WithPort pins the listen port instead of picking a free one.
func WithPort(port int) Option {
	return func(s *Service) { s.port = port }
}

// WithLogPath sends the driver's combined stdout and stderr to a file.
// Without it the output is discarded.
func WithLogPath(path string) Option {
	return func(s *Service) { s.logPath = path }
}

// WithStartTimeout bounds how long Start waits for the driver to accept
// connections.
func WithStartTimeout(d time.Duration) Option {
	return func(s *Service) { s.startTimeout = d }
}

// WithArgs appends extra command line arguments to the driver invocation.
func WithArgs(args ...string) Option {
	return func(s *Service) { s.extraArgs = append(s.extraArgs, args...) }
}

// WithLogger routes the service's diagnostics through log.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithFS substitutes the filesystem used for binary and log file checks.
func WithFS(fs afero.Fs) Option {
	return func(s *Service) { s.fs = fs }
}

// NewChrome builds a Service around a chromedriver binary at path.
func NewChrome(path string, opts ...Option) (*Service, error) {
	return newService(kindChrome, "chromedriver", path, opts)
}

// NewGecko builds a Service around a geckodriver binary at path.
func NewGecko(path string, opts ...Option) (*Service, error) {
	return newService(kindGecko, "geckodriver", path, opts)
}

func newService(k kind, name, path string, opts []Option) (*Service, error) {
	s := &Service{
		kind:         k,
		name:         name,
		path:         path,
		startTimeout: defaultStartTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.port == 0 {
		port, err := freeport.GetFreePort()
		if err != nil {
			return nil, fmt.Errorf("%s: allocate port: %w", name, err)
		}
		s.port = port
	}
	return s, nil
}

// URL returns the base URL a client should connect to once the service runs.
func (s *Service) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.port)
}

// Port returns the listen port the service was configured with.
func (s *Service) Port() int {
	return s.port
}

// args builds the driver command line. chromedriver wants --port=N while
// geckodriver wants --port N.
func (s *Service) args() []string {
	var args []string
	switch s.kind {
	case kindGecko:
		args = append(args, "--port", strconv.Itoa(s.port))
	default:
		args = append(args, "--port="+strconv.Itoa(s.port))
	}
	return append(args, s.extraArgs...)
}

// Start launches the driver process and blocks until it accepts TCP
// connections or the start timeout passes. The context governs the process
// lifetime: cancelling it kills the driver.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return fmt.Errorf("%s: %w", s.name, ErrAlreadyRunning)
	}

	info, err := s.fs.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%s binary %q: not found: %w", s.name, s.path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s binary %q: is a directory", s.name, s.path)
	}

	var sink afero.File
	if s.logPath != "" {
		sink, err = s.fs.OpenFile(s.logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("%s: open driver log %q: %w", s.name, s.logPath, err)
		}
	}

	cmd := exec.CommandContext(ctx, s.path, s.args()...)
	if sink != nil {
		cmd.Stdout = sink
		cmd.Stderr = sink
	}

	s.log.Info("driver starting",
		zap.String("driver", s.name),
		zap.String("path", s.path),
		zap.Int("port", s.port),
	)
	if err := cmd.Start(); err != nil {
		if sink != nil {
			sink.Close()
		}
		return fmt.Errorf("%s: start: %w", s.name, err)
	}

	exit := watchExit(cmd)

	began := time.Now()
	if err := s.waitReady(ctx, exit); err != nil {
		cmd.Process.Kill()
		exit.wait()
		if sink != nil {
			sink.Close()
		}
		return err
	}

	s.cmd = cmd
	s.sink = sink
	s.exit = exit
	s.log.Info("driver ready",
		zap.String("driver", s.name),
		zap.String("url", s.URL()),
		zap.Duration("elapsed", time.Since(began)),
	)
	return nil
}

// waitReady probes the driver port until it answers, the process dies, or
// the timeout passes.
func (s *Service) waitReady(ctx context.Context, exit *exitWatch) error {
	deadline := time.NewTimer(s.startTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	address := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
	dialer := &net.Dialer{Timeout: probeInterval}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			return conn.Close()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: startup aborted: %w", s.name, ctx.Err())
		case <-exit.done:
			detail := "exit status 0"
			if exit.err != nil {
				detail = exit.err.Error()
			}
			return fmt.Errorf("%s: exited during startup: %s", s.name, detail)
		case <-deadline.C:
			return fmt.Errorf("%s: not accepting connections on %s after %s", s.name, address, s.startTimeout)
		case <-ticker.C:
		}
	}
}

// Stop interrupts the driver process and waits for it to exit, escalating to
// a kill after a grace period.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return fmt.Errorf("%s: %w", s.name, ErrNotRunning)
	}

	s.cmd.Process.Signal(os.Interrupt)

	grace := time.NewTimer(stopGracePeriod)
	defer grace.Stop()
	select {
	case <-s.exit.done:
	case <-grace.C:
		s.cmd.Process.Kill()
	}
	waitErr := s.exit.wait()

	if s.sink != nil {
		s.sink.Close()
		s.sink = nil
	}
	s.cmd = nil
	s.exit = nil

	// Dying from our own signal is a normal shutdown.
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return fmt.Errorf("%s: stop: %w", s.name, waitErr)
	}
	s.log.Info("driver stopped", zap.String("driver", s.name))
	return nil
}

// Running reports whether the service currently holds a live process.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}
