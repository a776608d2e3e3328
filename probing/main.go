// The probing command serves and exports trace databases recorded by
// instrumented programs.
package main

import "github.com/DeepLink-org/probing/probing/cmd"

func main() {
	cmd.Execute()
}
