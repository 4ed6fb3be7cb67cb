/*
Package anchorsync is a small state machine that sequences sharing a spatial anchor
through a cloud anchor service: host an anchor where the user touches, then resolve
it again by its cloud identifier.

It implements a "Pure Transition, Host-Owned Effects" architecture: the state machine
takes a session snapshot and a stimulus and returns the next snapshot plus the side
effects to perform. The cloud SDK, the scene graph and persistence are injected through
ports, so the same controller runs inside a frame loop, an HTTP server or an MCP tool.

# Concept

A session cycles through four modes forever:

	AwaitingHostTrigger -> HostingInProgress -> AwaitingResolveTrigger -> ResolvingInProgress -> AwaitingHostTrigger

Two stimuli drive it: a poll tick, called once per rendered frame with an optional touch
sample, and an identifier submission, which starts resolving from any mode.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/anchorsync"
		"github.com/aretw0/anchorsync/pkg/adapters/simulated"
		"github.com/aretw0/anchorsync/pkg/domain"
	)

	func main() {
		ctrl, err := anchorsync.New(simulated.New(simulated.DefaultOptions()))
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		pose := domain.Pose{Rotation: domain.IdentityRotation}

		// A touch that hit a plane starts hosting.
		s, err := ctrl.Tick(ctx, "device-1", &domain.TouchInput{Began: true, Pose: &pose})
		if err != nil {
			log.Fatal(err)
		}

		// Every following frame polls the operation.
		for s.Mode == domain.ModeHostingInProgress {
			if s, err = ctrl.Tick(ctx, "device-1", nil); err != nil {
				log.Fatal(err)
			}
		}
		log.Println("hosted:", s.LastAnchorID)
	}
*/
package anchorsync
