package cosmic

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	"astropipe/internal/services"
)

// Tool selects which Cosmic Clarity executable a client drives.
type Tool string

const (
	ToolSharpen Tool = "sharpen"
	ToolDenoise Tool = "denoise"
)

// confFileNames maps each tool to the conf file its Siril setup script writes.
var confFileNames = map[Tool]string{
	ToolSharpen: "sirilcc_sharpen.conf",
	ToolDenoise: "sirilcc_denoise.conf",
}

// ProgressUpdate captures scraped Cosmic Clarity progress output.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithExecutablePath bypasses conf-file discovery with an explicit path.
func WithExecutablePath(path string) Option {
	return func(c *Client) {
		if strings.TrimSpace(path) != "" {
			c.executable = strings.TrimSpace(path)
		}
	}
}

// WithExtraArgs appends fixed arguments to every invocation.
func WithExtraArgs(args []string) Option {
	return func(c *Client) {
		c.extraArgs = append([]string(nil), args...)
	}
}

// WithRunTimeout bounds each subprocess run. Zero disables the bound.
func WithRunTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.runTimeout = timeout
	}
}

// Client wraps one Cosmic Clarity executable.
type Client struct {
	tool       Tool
	configDir  string
	executable string
	extraArgs  []string
	runTimeout time.Duration
	exec       Executor
}

// New constructs a client for the given tool. configDir is the Siril config
// directory holding the tool's conf file; an explicit executable path option
// takes precedence over conf-file discovery.
func New(tool Tool, configDir string, opts ...Option) *Client {
	client := &Client{
		tool:      tool,
		configDir: configDir,
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Resolve locates the executable and derives the tool's input and output
// directories. A missing conf file is a fatal configuration error: nothing
// has been copied, moved, or deleted yet.
func (c *Client) Resolve() (exe, inputDir, outputDir string, err error) {
	exe = c.executable
	if exe == "" {
		confPath := filepath.Join(c.configDir, confFileNames[c.tool])
		data, readErr := os.ReadFile(confPath)
		if readErr != nil {
			return "", "", "", services.Wrap(services.ErrConfiguration, string(c.tool), "locate executable",
				fmt.Sprintf("conf file %s missing; configure Cosmic Clarity (v5.4 or higher recommended) first", confPath), readErr)
		}
		exe = strings.TrimSpace(firstLine(string(data)))
		if exe == "" {
			return "", "", "", services.Wrap(services.ErrConfiguration, string(c.tool), "locate executable",
				fmt.Sprintf("conf file %s is empty", confPath), nil)
		}
	}
	suiteDir := filepath.Dir(exe)
	return exe, filepath.Join(suiteDir, "input"), filepath.Join(suiteDir, "output"), nil
}

// percentRe matches the NN.NN% progress substrings Cosmic Clarity prints.
var percentRe = regexp.MustCompile(`(\d+\.?\d*)%`)

// Run invokes the executable with the given tool arguments, scraping progress
// and forwarding every other non-empty output line to onLog.
func (c *Client) Run(ctx context.Context, toolArgs []string, progress func(ProgressUpdate), onLog func(string)) error {
	exe, _, _, err := c.Resolve()
	if err != nil {
		return err
	}

	runCtx := ctx
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	args := append(append([]string(nil), toolArgs...), c.extraArgs...)
	err = c.exec.Run(runCtx, exe, args, func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		if m := percentRe.FindStringSubmatch(line); m != nil {
			if pct, parseErr := strconv.ParseFloat(m[1], 64); parseErr == nil {
				if progress != nil {
					progress(ProgressUpdate{Percent: pct, Message: line})
				}
				return
			}
		}
		if onLog != nil {
			onLog(line)
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(c.tool), "run",
			shellquote.Join(append([]string{exe}, args...)...), err)
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	wg.Add(1)
	go func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}(stdout)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
