// Notegraph - render the links between notes as a Graphviz digraph.
//
// Notegraph loads a snapshot of notes, links and citation keys into a
// local store, selects the whole graph or the component around one note,
// and renders it with Graphviz.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/notegraph-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
