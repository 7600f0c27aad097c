package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Request describes one download attempt. OutputPath is an output
// template; the final file carries the extension of the extracted
// audio format.
type Request struct {
	URL         string
	OutputPath  string
	Profile     string
	UserAgent   string
	CookiesFile string
	ProxyURL    string
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

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary string
	exec   Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

const outputTailLines = 15

// Download runs a single attempt. On failure the returned error
// carries the tail of the tool's output so callers can classify the
// refusal by status code or phrase.
func (c *Client) Download(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.URL) == "" {
		return errors.New("download url required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return errors.New("output path required")
	}

	var mu sync.Mutex
	tail := make([]string, 0, outputTailLines)
	onLine := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(tail) == outputTailLines {
			copy(tail, tail[1:])
			tail[len(tail)-1] = line
		} else {
			tail = append(tail, line)
		}
	}

	if err := c.exec.Run(ctx, c.binary, BuildArgs(req), onLine); err != nil {
		mu.Lock()
		defer mu.Unlock()
		if len(tail) > 0 {
			return fmt.Errorf("yt-dlp: %w: %s", err, strings.Join(tail, " | "))
		}
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}

// BuildArgs maps a request onto the downloader invocation: best audio
// extracted to MP3 at 192 kbps with bounded fragment and socket
// retries, plus whatever identity flags the request carries.
func BuildArgs(req Request) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192",
		"--output", req.OutputPath,
		"--concurrent-fragments", "4",
		"--fragment-retries", "3",
		"--retries", "3",
		"--socket-timeout", "30",
	}
	if req.Profile != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+req.Profile)
	}
	if req.UserAgent != "" {
		args = append(args, "--user-agent", req.UserAgent)
	}
	if req.CookiesFile != "" {
		args = append(args, "--cookies", req.CookiesFile)
	}
	if req.ProxyURL != "" {
		args = append(args, "--proxy", req.ProxyURL)
	}
	return append(args, req.URL)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
