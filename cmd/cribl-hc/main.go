// Command cribl-hc runs a single Cribl deployment health-assessment pass
// and prints a report. It is intentionally thin: one invocation, one run,
// one report — no interactive shell, no scheduler.
package main

import (
	"github.com/cribl-hc/cribl-hc/cmd/cribl-hc/commands"
)

func main() {
	commands.Execute()
}
