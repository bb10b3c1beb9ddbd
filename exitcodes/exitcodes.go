// Package exitcodes defines the standard exit codes used by op-citest.
package exitcodes

// Exit code constants used by op-citest
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when every command passes
// * TestFailure (1): Used when a command or the smoke test fails
// * RuntimeErr (2): Used for runtime errors such as an unparsable profile, an
// executor fault or a summary that cannot be written
const (
	Success     = 0 // All commands pass
	TestFailure = 1 // Command failures
	RuntimeErr  = 2 // Runtime errors
)
