package notifier

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// LineSource runs a long-lived monitor command (e.g. "ip monitor",
// "alsactl monitor") and emits one event per non-empty output line.
type LineSource struct {
	Name string
	Args []string
	// Match filters lines; nil accepts every line.
	Match func(line string) bool
}

func NewLineSource(name string, args ...string) *LineSource {
	return &LineSource{Name: name, Args: args}
}

func (s *LineSource) Events(ctx context.Context) (<-chan struct{}, error) {
	cmd := exec.CommandContext(ctx, s.Name, s.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: stdout pipe: %w", s.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: start: %w", s.Name, err)
	}

	out := make(chan struct{})
	go func() {
		defer close(out)
		defer func() { _ = cmd.Wait() }()

		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if s.Match != nil && !s.Match(line) {
				continue
			}
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
