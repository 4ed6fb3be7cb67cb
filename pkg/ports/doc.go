/*
Package ports defines the driven ports (interfaces) for the anchorsync controller.

These interfaces decouple the core state machine from external implementations, allowing
the controller to work with any cloud anchor SDK, artifact renderer and storage backend.

# Key Interfaces

  - AnchorProvider: Hosts and resolves cloud anchors (the external SDK).
  - ArtifactSpawner: Instantiates the visual artifact attached to a completed anchor.
  - SessionStore: Responsible for persisting and loading session snapshots.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
