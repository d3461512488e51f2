// Command fragdiff compares two JSON-encoded transfer snapshots (as
// produced by fragctl's --dump flag in a future revision, or hand-written
// fixtures) and prints a structural diff, to help debug why a reassembled
// payload came out different between a test run and the original. Built
// on github.com/anacrolix/tagflag for argument parsing and
// github.com/d4l3k/messagediff for the structural diff itself, following
// netsys-lab-parts' CLI style of a single flat tagflag struct instead of a
// subcommand tree.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anacrolix/tagflag"
	"github.com/d4l3k/messagediff"
)

var flags = struct {
	Left  string
	Right string
	tagflag.StartPos
}{}

func main() {
	tagflag.Parse(&flags)

	left, err := loadSnapshot(flags.Left)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	right, err := loadSnapshot(flags.Right)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	diff, equal := messagediff.PrettyDiff(left, right)
	if equal {
		fmt.Println("snapshots are structurally identical")
		return
	}
	fmt.Print(diff)
}

// loadSnapshot parses a JSON document into a generic map so fragdiff can
// compare snapshots without importing fragctl's internal types.
func loadSnapshot(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fragdiff: read %s: %w", path, err)
	}
	var v map[string]interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("fragdiff: parse %s: %w", path, err)
	}
	return v, nil
}
