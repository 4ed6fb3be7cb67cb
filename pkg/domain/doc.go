/*
Package domain contains the core domain models for the anchorsync controller.

It defines the anchor session lifecycle: the four modes a session moves through, the
snapshot that is persisted between cycles, the stimuli that drive it, and the effects
it asks the host to perform. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Mode: The current phase of a session (awaiting a trigger or polling an operation).
  - Session: The runtime snapshot (Mode, PendingAnchor, LastAnchorID, Status).
  - TouchInput: The per-cycle touch sample supplied by the host loop.
  - Effect: A side effect requested by a transition (spawn an artifact, release a handle).
*/
package domain
