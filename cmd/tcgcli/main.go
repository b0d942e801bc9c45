// Command tcgcli manages decks, cards and battle records from the terminal.
package main

import (
	"context"
	"os"
)

func main() {
	c := &cli{}
	if err := c.execute(context.Background(), newRootCmd(c)); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}
