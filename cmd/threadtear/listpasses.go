package main

import (
	"flag"
	"fmt"
	"strings"
)

func cmdListPasses(args []string) error {
	fs := flag.NewFlagSet("list-passes", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := buildRegistry()
	for _, p := range r.List() {
		m := p.Metadata()
		var tags []string
		for _, t := range m.Tags {
			tags = append(tags, string(t))
		}
		fmt.Printf("%-28s [%s] %s\n", m.ID, m.Category, m.DisplayName)
		fmt.Printf("%-28s %s\n", "", m.Description)
		if len(tags) > 0 {
			fmt.Printf("%-28s tags: %s\n", "", strings.Join(tags, ", "))
		}
	}
	return nil
}
