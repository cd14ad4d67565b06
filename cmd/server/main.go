package main // Entry point package

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil { // cobra prints usage errors itself
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
