package siril

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"astropipe/internal/logging"
	"astropipe/internal/services"
)

// Conn is the host collaborator command channel the pipeline depends on.
type Conn interface {
	// Connect opens the command channel to the host.
	Connect(ctx context.Context) error
	// Cmd sends one command line and blocks until the host reports a
	// terminal status for it.
	Cmd(ctx context.Context, args ...string) error
	// Log surfaces a message on the session's logging channel.
	Log(ctx context.Context, text string)
	// UpdateProgress reports normalized progress for the given label.
	UpdateProgress(ctx context.Context, label string, fraction float64)
	Close() error
}

// SessionOptions describes the host session bootstrap sequence.
type SessionOptions struct {
	RequiredVersion string
	WorkDir         string
	Extension       string
	Force32Bit      bool
}

// Setup issues the session preamble: version requirement, working directory,
// bit depth, and output extension.
func Setup(ctx context.Context, conn Conn, opts SessionOptions) error {
	if err := conn.Cmd(ctx, "requires", opts.RequiredVersion); err != nil {
		return services.Wrap(services.ErrConnection, "session", "requires",
			fmt.Sprintf("host version below %s", opts.RequiredVersion), err)
	}
	if err := conn.Cmd(ctx, "cd", opts.WorkDir); err != nil {
		return services.Wrap(services.ErrConnection, "session", "cd", opts.WorkDir, err)
	}
	if opts.Force32Bit {
		if err := conn.Cmd(ctx, "set32bits"); err != nil {
			return services.Wrap(services.ErrConnection, "session", "set32bits", "", err)
		}
	}
	if err := conn.Cmd(ctx, "setext", opts.Extension); err != nil {
		return services.Wrap(services.ErrConnection, "session", "setext", opts.Extension, err)
	}
	return nil
}

// PipeConn talks to Siril over its command/response FIFO pair. Commands are
// serialized: one command is in flight at a time.
type PipeConn struct {
	commandPath    string
	responsePath   string
	connectTimeout time.Duration
	logger         *slog.Logger

	mu       sync.Mutex
	command  *os.File
	response *bufio.Scanner
	respFile *os.File
}

// NewPipeConn constructs a pipe-backed connection. The logger receives the
// host's log lines; a nil logger discards them.
func NewPipeConn(commandPath, responsePath string, connectTimeout time.Duration, logger *slog.Logger) *PipeConn {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PipeConn{
		commandPath:    commandPath,
		responsePath:   responsePath,
		connectTimeout: connectTimeout,
		logger:         logger,
	}
}

// Connect opens both FIFOs. Opening the command FIFO blocks until Siril is
// listening, so the open itself runs under the connect timeout. The host's
// ready lines are consumed during command reads.
func (c *PipeConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}

	type opened struct {
		cmd, resp *os.File
		err       error
	}
	done := make(chan opened, 1)
	go func() {
		cmd, err := os.OpenFile(c.commandPath, os.O_WRONLY, 0)
		if err != nil {
			done <- opened{err: fmt.Errorf("open command pipe %q: %w", c.commandPath, err)}
			return
		}
		resp, err := os.OpenFile(c.responsePath, os.O_RDONLY, 0)
		if err != nil {
			cmd.Close()
			done <- opened{err: fmt.Errorf("open response pipe %q: %w", c.responsePath, err)}
			return
		}
		done <- opened{cmd: cmd, resp: resp}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			return services.Wrap(services.ErrConnection, "connect", "open pipes", "is Siril running with -p?", result.err)
		}
		c.command = result.cmd
		c.respFile = result.resp
		c.response = bufio.NewScanner(result.resp)
	case <-ctx.Done():
		return services.Wrap(services.ErrConnection, "connect", "open pipes", "timed out; is Siril running with -p?", ctx.Err())
	}

	return nil
}

// Cmd writes a single command line and reads the response stream until the
// host reports status success or error for it.
func (c *PipeConn) Cmd(ctx context.Context, args ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.command == nil {
		return services.Wrap(services.ErrConnection, "cmd", "write", "not connected", nil)
	}

	line := strings.Join(args, " ")
	if _, err := fmt.Fprintln(c.command, line); err != nil {
		return services.Wrap(services.ErrConnection, "cmd", "write", line, err)
	}

	for c.response.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(c.response.Text())
		switch {
		case text == "" || text == "ready":
			continue
		case strings.HasPrefix(text, "log:"):
			c.logger.Info(strings.TrimSpace(strings.TrimPrefix(text, "log:")))
		case strings.HasPrefix(text, "progress:"):
			if fraction, ok := parseProgress(text); ok {
				c.UpdateProgress(ctx, firstToken(line), fraction)
			}
		case strings.HasPrefix(text, "status: success"):
			return nil
		case strings.HasPrefix(text, "status: error"):
			detail := strings.TrimSpace(strings.TrimPrefix(text, "status: error"))
			return fmt.Errorf("siril: %s: %s", line, detail)
		default:
			c.logger.Debug(text)
		}
	}
	if err := c.response.Err(); err != nil {
		return services.Wrap(services.ErrConnection, "cmd", "read response", line, err)
	}
	return services.Wrap(services.ErrConnection, "cmd", "read response", line+": stream closed", nil)
}

// Log surfaces a message on the session logging channel. Pipe mode has no
// log-injection command, so lines land on the local logger.
func (c *PipeConn) Log(_ context.Context, text string) {
	c.logger.Info(text)
}

// UpdateProgress reports normalized progress for the given label.
func (c *PipeConn) UpdateProgress(_ context.Context, label string, fraction float64) {
	c.logger.Info("progress",
		logging.String("label", label),
		logging.Float64("fraction", fraction))
}

// Close releases both pipe ends.
func (c *PipeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	if c.command != nil {
		if err := c.command.Close(); err != nil {
			first = err
		}
		c.command = nil
	}
	if c.respFile != nil {
		if err := c.respFile.Close(); err != nil && first == nil {
			first = err
		}
		c.respFile = nil
		c.response = nil
	}
	return first
}

// parseProgress interprets "progress: NN%" style response lines.
func parseProgress(line string) (float64, bool) {
	value := strings.TrimSpace(strings.TrimPrefix(line, "progress:"))
	value = strings.TrimSuffix(value, "%")
	pct, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return pct / 100.0, true
}

// CommandLine renders an argument vector the way it is written to the
// command pipe, for error messages and logs.
func CommandLine(args []string) string {
	return strings.Join(args, " ")
}

func firstToken(line string) string {
	if idx := strings.IndexByte(line, ' '); idx > 0 {
		return line[:idx]
	}
	return line
}

var _ Conn = (*PipeConn)(nil)
