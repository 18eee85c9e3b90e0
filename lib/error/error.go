/*package error contains simple functions for reporting fatal covint errors.
Library code returns error values; only mode-level code and invariant checks
inside the estimator should end up here.
*/
package error

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"
)

// Exit is called after a fatal error has been reported. Tests replace it so
// that they can observe fatal paths without killing the test binary.
var Exit = os.Exit

// External reports an error to stderr and kills the program. It should be used
// when an error is something a user could reasonably be expected to fix through
// changes in configuration/data/environment. It has the same signature as the
// standard fmt.*printf() functions.
func External(format string, a ...interface{}) {
	log.Printf("covint exited early with the following error:\n"+format, a...)
	Exit(1)
}

// Internal reports an error to stderr along with a stack trace and kills the
// program. It should be used when the error requires a code dive to fix, e.g.
// a broken invariant inside the estimator.
func Internal(format string, a ...interface{}) {
	log.Println("covint exited early with the following internal error:")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n\n")
	debug.PrintStack()
	Exit(1)
}

// Check reports err through External if it is non-nil. context describes
// what was being attempted, e.g. "reading the particle catalogue".
func Check(err error, context string) {
	if err != nil {
		External("An error occurred while %s: %s", context, err.Error())
	}
}
