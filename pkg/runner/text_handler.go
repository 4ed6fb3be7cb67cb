package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// StatusRenderer transforms a status line before it is printed.
// This allows terminal styling without coupling the core package.
type StatusRenderer func(s *domain.Session) string

// TextHandler implements the line-based command interface.
type TextHandler struct {
	Writer   io.Writer
	Renderer StatusRenderer

	pump *linePump
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the status renderer.
func WithTextHandlerRenderer(renderer StatusRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Writer: w,
		pump:   newLinePump(r),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Next() (Command, bool, error) {
	for {
		line, ok, err := h.pump.poll()
		if err != nil || !ok {
			return Command{}, false, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := ParseCommand(line)
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return cmd, true, nil
	}
}

func (h *TextHandler) Output(ctx context.Context, s *domain.Session) error {
	line := s.Status
	if h.Renderer != nil {
		line = h.Renderer(s)
	}
	_, err := fmt.Fprintln(h.Writer, line)
	return err
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}
