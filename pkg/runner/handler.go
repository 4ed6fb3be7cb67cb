package runner

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// DefaultInputBufferSize is the default number of lines to buffer for input handlers.
const DefaultInputBufferSize = 64

// IOHandler defines how the frame loop receives stimuli and reports sessions.
// This allows switching between Text (CLI) and JSON (Structured) modes.
type IOHandler interface {
	// Next returns the next pending command without blocking.
	// ok is false when nothing arrived since the last frame.
	// io.EOF reports that no more commands will arrive.
	Next() (cmd Command, ok bool, err error)

	// Output presents a session that changed during the frame.
	Output(ctx context.Context, s *domain.Session) error

	// SystemOutput presents a meta-message (rejected commands, notices).
	SystemOutput(ctx context.Context, msg string) error
}

type lineResult struct {
	text string
	err  error
}

// linePump reads lines in the background so the frame loop never blocks on input.
type linePump struct {
	reader *bufio.Reader
	lines  chan lineResult
	once   sync.Once
	done   bool
}

func newLinePump(r io.Reader) *linePump {
	return &linePump{reader: bufio.NewReader(r)}
}

func (p *linePump) start() {
	p.once.Do(func() {
		p.lines = make(chan lineResult, DefaultInputBufferSize)
		go p.run()
	})
}

func (p *linePump) run() {
	defer close(p.lines)
	for {
		text, err := p.reader.ReadString('\n')
		if text != "" {
			p.lines <- lineResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				p.lines <- lineResult{err: err}
			}
			return
		}
	}
}

// poll returns the next line if one is buffered. Not safe for concurrent use.
func (p *linePump) poll() (string, bool, error) {
	p.start()
	if p.done {
		return "", false, io.EOF
	}
	select {
	case res, open := <-p.lines:
		if !open {
			p.done = true
			return "", false, io.EOF
		}
		if res.err != nil {
			return "", false, res.err
		}
		return res.text, true, nil
	default:
		return "", false, nil
	}
}
