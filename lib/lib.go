/*package lib contains the functions needed by covint's modes: the config
file and command line, validation of the config before anything expensive is
started, and loading of particle catalogues. Almost all of the heavy lifting
is done by lib/'s subpackages.
*/
package lib

import (
	"fmt"
	"io"
)

// Version is the version of the software. It is printed by help mode.
const Version = "1.0.0"

// ExampleConfig is an annotated config file which lists every variable.
const ExampleConfig = `[Estimator]
# Binning. NBin radial (or k) bins and MBin mu bins (or multipoles).
NBin = 25
MBin = 1
RMin = 0
RMax = 200
# k range of the power variant.
KMin = 0
KMax = 0.4
# binned, legendre, or power.
Variant = binned
Jackknife = false

# Number of second, third and fourth cells drawn per cell of the level above.
N2 = 20
N3 = 15
N4 = 10
MaxLoops = 10
# -1 uses every core.
Threads = -1
# 0 draws a random seed.
Seed = 0
ConvergenceReset = false

CellSize = 10
Periodic = false
BoxSize = 1000

PowerNorm = 1
Norm1 = 1
Norm2 = 1

MultiTracers = false
# Which of the field combinations to compute, e.g. 1..7 - 3.
Iterations = 1
# crash or warn.
CheckStrictness = crash

[Files]
# Catalogues have columns x y z w and, for jackknife runs, a region ID.
Particles1 = random1.txt
Particles2 =
Correlation11 = xi11.txt
Correlation22 =
Correlation12 =
Jackknife11 =
Jackknife22 =
Jackknife12 =
Survey11 =
Survey22 =
Survey12 =
JackknifeXi =
OutDir = out

[Reduce]
Alpha = 1
SkipR = 0
SkipM = 0
# 0 counts the loop checkpoints in OutDir.
Subsamples = 0

[Convert]
Input = radecz.txt
Output = xyz.txt
OmegaM = 0.31
OmegaK = 0
W = -1
`

// PrintHelp writes usage information and an example config file to w.
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `covint %s computes the C2, C3, and C4 covariance integrals
of a tracer catalogue by importance-sampled Monte Carlo integration.

Usage:
    covint <mode> <config file> [--<Name> <Value>]...

Modes:
    help     print this message.
    check    check the config file and input files for errors.
    run      compute the integrals and write them to OutDir.
    reduce   turn the integrals in OutDir into a covariance matrix.
    convert  convert an (ra, dec, z) catalogue to comoving (x, y, z).

Any config variable can be set on the command line, e.g. --Threads 4.

Example config file:

%s`, Version, ExampleConfig)
}
