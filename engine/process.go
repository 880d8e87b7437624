package engine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ringplayer/ringplayer/constant"
	"github.com/ringplayer/ringplayer/where"
)

var (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// process is a running engine backend.
type process interface {
	// Exited is closed once the process is gone.
	Exited() <-chan struct{}
	Kill() error
}

type startFunc func(binary string, args []string) (process, error)

type execProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

// startProcess launches binary detached from our process group with no pipes.
func startProcess(binary string, args []string) (process, error) {
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	p := &execProcess{cmd: cmd, exited: make(chan struct{})}
	// Reap the process so it never lingers as a zombie.
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *execProcess) Exited() <-chan struct{} { return p.exited }

func (p *execProcess) Kill() error { return killProcess(p.cmd) }

// newSocketPath returns a fresh IPC socket path in the temp directory.
func newSocketPath() (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generate socket name: %w", err)
	}
	return filepath.Join(where.Temp(), fmt.Sprintf("%s-%x.sock", constant.Ringplayer, randomBytes)), nil
}

// waitForSocket polls until the IPC socket is accepting connections.
func waitForSocket(socketPath string, exited <-chan struct{}) error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-exited:
			return errors.New("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", socketPath, socketWaitRetries)
}

// sanitizeMediaTarget validates that a locator is safe to pass to mpv as a
// positional argument. File URLs become plain paths.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", errors.New("empty locator")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", errors.New("invalid control characters in locator")
	}

	// Anything starting with - would be parsed as a flag.
	if strings.HasPrefix(l, "-") {
		return "", errors.New("locator must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid locator: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		case "file":
			return filepath.Clean(filepath.FromSlash(u.Path)), nil
		default:
			return "", fmt.Errorf("unsupported locator scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

// sanitizeTitle flattens a title to one line for the mpv window.
func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
