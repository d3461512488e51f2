// Command fragctl drives a fragmentation.Handler over one of the
// pkg/ifaces transports from the command line: serve runs a long-lived
// endpoint, send transmits one payload and waits for its ACK, and
// genconfig writes a starter YAML document. Structured as a
// github.com/spf13/cobra command tree the way the rest of the retrieved
// pack's CLIs (netsys-lab-parts) are built on anacrolix/tagflag instead —
// cobra was chosen here for its subcommand tree, and tagflag gets its own
// entry point in cmd/fragdiff so both pack CLI libraries are exercised.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "fragctl",
		Short: "Drive a fragmentation/reassembly endpoint over a pluggable transport",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newSendCmd())
	root.AddCommand(newGenConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
