// go-replica simulates scene replication between a server and its clients.
package main

import (
	"fmt"
	"os"

	"github.com/spacemeshos/go-replica/cmd"
	"github.com/spacemeshos/go-replica/cmd/replsim"
)

var (
	version string
	commit  string
	branch  string
)

func main() { // run the app
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := replsim.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
