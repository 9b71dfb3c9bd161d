// intentguard — trust-vector permission engine for AI agents.
// All commands live in internal/cli; this binary just dispatches.
package main

import "github.com/wiber/intentguard/internal/cli"

func main() {
	cli.Execute()
}
