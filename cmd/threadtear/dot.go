package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"threadtear/internal/cfg"
	"threadtear/internal/graph"
)

func cmdDot(args []string) error {
	fs := flag.NewFlagSet("dot", flag.ExitOnError)
	inDir := fs.String("in", "", "directory of .class files")
	outFile := fs.String("out", "", "file to write the DOT graph to")
	class := fs.String("class", "", "internal class name; with --method, render that method's CFG instead of the whole-universe class graph")
	method := fs.String("method", "", "method name, e.g. \"decrypt(J)Ljava/lang/String;\" — only used with --class")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inDir == "" {
		return fmt.Errorf("--in is required")
	}
	if *outFile == "" {
		return fmt.Errorf("--out is required")
	}

	u, err := loadUniverse(*inDir)
	if err != nil {
		return err
	}

	var dot string
	switch {
	case *class != "" && *method != "":
		rec := u.Get(*class)
		if rec == nil {
			return fmt.Errorf("class not found: %s", *class)
		}
		name, desc, ok := splitMethodRef(*method)
		if !ok {
			return fmt.Errorf("--method must be \"name(descriptor)\", got %q", *method)
		}
		m := rec.Node.Method(name, desc)
		if m == nil {
			return fmt.Errorf("method not found: %s.%s%s", *class, name, desc)
		}
		lcfg := graph.BuildMethodCFG(name+desc, cfg.Build(m))
		dot = graph.RenderMethodCFGDOT(lcfg, *class+"."+name)
	case *class != "":
		rec := u.Get(*class)
		if rec == nil {
			return fmt.Errorf("class not found: %s", *class)
		}
		dot = graph.RenderClassCFGDOT(graph.BuildClassCFGGraph(rec.Node), *class)
	default:
		dot = graph.RenderClassGraphDOT(graph.BuildClassGraph(u), "classgraph")
	}

	if err := os.WriteFile(*outFile, []byte(dot), 0644); err != nil {
		return fmt.Errorf("write %s: %w", *outFile, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *outFile)
	return nil
}

// splitMethodRef splits "name(desc)ret" into ("name", "(desc)ret").
func splitMethodRef(s string) (name, descriptor string, ok bool) {
	i := strings.IndexByte(s, '(')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i:], true
}
