// Package artifact provides ports.ArtifactSpawner implementations for hosts
// without a scene graph: a text writer for terminals and a structured logger.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/anchorsync/pkg/domain"
)

// Nop discards every artifact.
type Nop struct{}

// Spawn implements ports.ArtifactSpawner.
func (Nop) Spawn(ctx context.Context, kind domain.ArtifactKind, anchor domain.Handle) error {
	return nil
}

// Writer prints one line per artifact.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a Writer spawner.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Spawn implements ports.ArtifactSpawner.
func (w *Writer) Spawn(ctx context.Context, kind domain.ArtifactKind, anchor domain.Handle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.out, "[%s] artifact attached to anchor %s\n", kind, anchor)
	return err
}

// Logger records artifacts as structured log entries.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger spawner.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Spawn implements ports.ArtifactSpawner.
func (l *Logger) Spawn(ctx context.Context, kind domain.ArtifactKind, anchor domain.Handle) error {
	l.logger.InfoContext(ctx, "artifact_spawned", "kind", kind, "anchor", anchor)
	return nil
}
