package provision

import (
	"bufio"
	"context"
	"strings"
	"sync"

	"github.com/octopod/octopod/framework/helpers"
)

const maxLogLineLength = 1024 * 1024

// LogLine is one line of output from a service, tagged with the service name.
type LogLine struct {
	Source string
	Text   string
}

// StreamLogs follows the stdout and stderr of a service. The returned channel delivers one
// LogLine per line of output and is closed when the service's output ends or ctx is cancelled.
// Cancelling ctx is how a consumer that has stopped reading releases the stream.
func (p *Provisioner) StreamLogs(ctx context.Context, s *Service) (<-chan LogLine, error) {
	r, err := p.backend.ContainerLogs(ctx, s.id)
	if err != nil {
		return nil, err
	}
	ch := make(chan LogLine, 10)
	go func() {
		defer close(ch)
		defer r.Close() //nolint:errcheck
		stop := context.AfterFunc(ctx, func() { _ = r.Close() })
		defer stop()

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 4096), maxLogLineLength)
		for scanner.Scan() {
			line := LogLine{Source: s.name, Text: strings.TrimRight(scanner.Text(), "\r")}
			if !helpers.SendOrDone(ctx, ch, line) {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			p.logger.Printf("Log stream for service %s ended with error: %s", s.name, err)
		}
	}()
	return ch, nil
}

// MergeLogs combines several log channels into one. Lines arrive in the order they are received,
// so lines from the same source keep their relative order. The result is closed once every input
// is closed, or when ctx is cancelled.
func MergeLogs(ctx context.Context, sources ...<-chan LogLine) <-chan LogLine {
	out := make(chan LogLine, 10)
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src <-chan LogLine) {
			defer wg.Done()
			for line := range src {
				if !helpers.SendOrDone(ctx, out, line) {
					return
				}
			}
		}(src)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
