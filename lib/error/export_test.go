package error

import "os"

var osExit = os.Exit
