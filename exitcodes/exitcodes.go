// Package exitcodes defines the standard exit codes used by run-tests.
package exitcodes

// Exit code constants used by run-tests
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all selected, non-skipped phases pass
// * TestFailure (1): Used when one or more phases fail
// * RuntimeErr (2): Used for runtime errors such as invalid configuration
const (
	Success     = 0 // All selected phases pass (or are skipped)
	TestFailure = 1 // One or more phases failed
	RuntimeErr  = 2 // Runtime errors before any phase could run
)
