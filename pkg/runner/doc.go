/*
Package runner drives an anchor session from a frame loop.

It plays the part of a render loop: every frame it samples at most one pending
command from the IOHandler, turns it into a touch or an identifier submission,
calls the controller and reports the session whenever it changes.

# Key Components

  - Runner: The frame loop. Stops on "quit", on context cancellation, or once the
    input is exhausted and no operation is in flight.
  - IOHandler: Decouples how commands arrive and how sessions are reported.
  - TextHandler: Line commands for interactive CLI usage.
  - JSONHandler: JSON-Lines commands and session snapshots for scripting.

# Usage

	r := runner.NewRunner(ctrl,
		runner.WithSessionID("device-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
