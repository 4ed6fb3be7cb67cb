package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// CommandType names one stimulus of the frame loop.
type CommandType string

const (
	// CommandTouch is a touch sample for the current frame.
	CommandTouch CommandType = "touch"

	// CommandSubmit submits a cloud identifier to resolve.
	CommandSubmit CommandType = "submit"

	// CommandQuit stops the loop.
	CommandQuit CommandType = "quit"
)

// Command is a parsed stimulus.
type Command struct {
	Type       CommandType        `json:"type"`
	Touch      *domain.TouchInput `json:"touch,omitempty"`
	Identifier string             `json:"identifier,omitempty"`
}

var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand reads one line of the text protocol:
//
//	tap [x y z]    touch that hit a plane (at the origin by default)
//	tap-miss       touch that hit nothing
//	tap-ui         touch over a UI element
//	id <value>     submit an identifier
//	quit | exit    stop
func ParseCommand(line string) (Command, error) {
	clean, err := SanitizeInput(strings.TrimSpace(line))
	if err != nil {
		return Command{}, err
	}

	fields := strings.Fields(clean)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}

	switch verb, args := strings.ToLower(fields[0]), fields[1:]; verb {
	case "tap":
		pose, err := parsePose(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Type: CommandTouch, Touch: &domain.TouchInput{Began: true, Pose: &pose}}, nil
	case "tap-miss":
		return Command{Type: CommandTouch, Touch: &domain.TouchInput{Began: true}}, nil
	case "tap-ui":
		pose := domain.Pose{Rotation: domain.IdentityRotation}
		return Command{Type: CommandTouch, Touch: &domain.TouchInput{Began: true, OverUI: true, Pose: &pose}}, nil
	case "id":
		// Identifiers may contain spaces; keep everything after the verb.
		ident := strings.TrimSpace(clean[len(fields[0]):])
		if ident == "" {
			return Command{}, errors.New("id requires an identifier")
		}
		return Command{Type: CommandSubmit, Identifier: ident}, nil
	case "quit", "exit":
		return Command{Type: CommandQuit}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
	}
}

func parsePose(args []string) (domain.Pose, error) {
	pose := domain.Pose{Rotation: domain.IdentityRotation}
	switch len(args) {
	case 0:
		return pose, nil
	case 3:
	default:
		return pose, fmt.Errorf("tap expects 0 or 3 coordinates, got %d", len(args))
	}

	coords := make([]float64, 3)
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return pose, fmt.Errorf("invalid coordinate %q: %w", arg, err)
		}
		coords[i] = v
	}
	pose.Position = domain.Vector3{X: coords[0], Y: coords[1], Z: coords[2]}
	return pose, nil
}
