// main.go
//
// Entry point of drawdown-sim, the bootstrap Monte Carlo withdrawal simulator.
// `run` and `serve` are defined on the Cobra root command in cmd/root.go

package main

import (
	"github.com/drawdown-sim/drawdown-sim/cmd"
)

func main() {
	cmd.Execute()
}
