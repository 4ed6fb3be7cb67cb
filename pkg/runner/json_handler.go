package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Each input line is either a Command object or a plain text command.
type JSONHandler struct {
	Encoder *json.Encoder

	pump *linePump
}

// jsonEvent is one output line.
type jsonEvent struct {
	Type    string          `json:"type"`
	Session *domain.Session `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Encoder: json.NewEncoder(w),
		pump:    newLinePump(r),
	}
}

func (h *JSONHandler) Next() (Command, bool, error) {
	for {
		line, ok, err := h.pump.poll()
		if err != nil || !ok {
			return Command{}, false, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, err := decodeCommand(line)
		if err != nil {
			if encErr := h.SystemOutput(context.Background(), err.Error()); encErr != nil {
				return Command{}, false, encErr
			}
			continue
		}
		return cmd, true, nil
	}
}

func decodeCommand(line string) (Command, error) {
	if !strings.HasPrefix(line, "{") {
		return ParseCommand(line)
	}

	var cmd Command
	if err := json.Unmarshal([]byte(line), &cmd); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}
	switch cmd.Type {
	case CommandTouch, CommandQuit:
	case CommandSubmit:
		ident, err := SanitizeInput(cmd.Identifier)
		if err != nil {
			return Command{}, err
		}
		cmd.Identifier = ident
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return cmd, nil
}

func (h *JSONHandler) Output(ctx context.Context, s *domain.Session) error {
	return h.Encoder.Encode(jsonEvent{Type: "session", Session: s})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonEvent{Type: "system", Message: msg})
}
