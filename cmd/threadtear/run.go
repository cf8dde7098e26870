package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"threadtear/internal/classfile"
	"threadtear/internal/diag"
	"threadtear/internal/passes"
	"threadtear/internal/report"
	"threadtear/internal/universe"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	inDir := fs.String("in", "", "directory of .class files to deobfuscate")
	outDir := fs.String("out", "", "directory to write report.json/diags.json into")
	passList := fs.String("passes", "", "comma-separated pass IDs to run (default: all registered passes, in registration order)")
	strict := fs.Bool("strict", false, "stop the pipeline after the first pass that fails")
	maxSteps := fs.Int("max-steps", 0, "sandbox interpreter step cap (0 = default)")
	verbose := fs.Bool("verbose", false, "print per-pass progress to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inDir == "" {
		return fmt.Errorf("--in is required")
	}
	if *outDir == "" {
		return fmt.Errorf("--out is required")
	}

	u, err := loadUniverse(*inDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "loaded %d classes from %s\n", u.Len(), *inDir)

	opts := diag.Options{MaxSteps: *maxSteps, Verbose: *verbose}
	if *strict {
		opts.Mode = diag.ModeStrict
	}

	r := buildRegistry()
	selection := selectionOf(r, *passList)

	rep := passes.RunPipeline(r, u, selection, opts, nil)
	for _, pr := range rep.Passes {
		status := "unchanged"
		if pr.Changed {
			status = "changed"
		}
		if pr.Err != "" {
			fmt.Fprintf(os.Stderr, "%-28s FAILED: %s\n", pr.ID, pr.Err)
			continue
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "%-28s %s\n", pr.ID, status)
		}
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", *outDir, err)
	}
	if err := report.WriteSummary(*outDir, rep, u); err != nil {
		return err
	}
	if err := report.WriteDiags(*outDir, u); err != nil {
		return err
	}
	for _, pr := range rep.Passes {
		if err := report.WritePassReport(*outDir, pr); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "wrote report to %s (any_changed=%v)\n", *outDir, rep.AnyChanged())
	return nil
}

// loadUniverse reads every *.class file directly under dir into a fresh
// universe.U, keyed by each parsed class's own internal name.
func loadUniverse(dir string) (*universe.U, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	u := universe.New()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".class") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		cls, err := classfile.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		u.Add(cls, e.Name())
	}
	return u, nil
}

// selectionOf resolves --passes into an ordered ID list, defaulting to
// every pass registered in r, in registration order.
func selectionOf(r *passes.Registry, raw string) []string {
	if raw == "" {
		var all []string
		for _, p := range r.List() {
			all = append(all, p.Metadata().ID)
		}
		return all
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
