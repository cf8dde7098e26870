// Command threadtear is the CLI entry point for the deobfuscation engine,
// grounded on the teacher's cmd/unflutter/main.go: a flat os.Args[1]
// switch dispatching to per-subcommand functions, no external CLI
// framework (spec.md §1 puts command-line parsing out of the core's
// scope, and none of the 193 example files pulls in one either — cobra/
// urfave would bring a subcommand tree and persistent-flag machinery this
// tool's three flat subcommands don't need).
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "list-passes":
		err = cmdListPasses(os.Args[2:])
	case "dot":
		err = cmdDot(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `threadtear — static bytecode deobfuscation engine

Usage:
  threadtear run         --in <dir> --out <dir> [--passes <id,id,...>] [--strict] [--max-steps N] [--verbose]
                            Run the pass pipeline over a directory of .class files.
  threadtear list-passes   List every registered pass with its category and tags.
  threadtear dot          --in <dir> --out <file> [--class <name>] [--method <name+desc>]
                            Render a class-reference graph, or one method's CFG, as Graphviz DOT.
`)
}
