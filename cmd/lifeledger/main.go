// Command lifeledger runs and inspects the participant resource ledger.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/roach88/lifeledger/internal/cli"
)

func main() {
	atexit.Exit(cli.Execute())
}
