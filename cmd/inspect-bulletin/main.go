// Diagnostic program that shows how one bulletin is split and parsed.
// Useful when deciding whether a bulletin belongs on the skip list.
//
//	go run ./cmd/inspect-bulletin cache/gazette/2006/18_Sep30.txt
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/gazetteer/internal/extract"
)

func main() {
	legacy := flag.Bool("legacy-effective-date", false, "fill the effective date with the registration date")
	showLines := flag.Bool("lines", false, "print every section line, not only failures")
	showTypes := flag.Bool("types", false, "print the company type vocabulary and exit")
	flag.Parse()

	if *showTypes {
		for _, companyType := range extract.CompanyTypes() {
			fmt.Println(companyType)
		}
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect-bulletin [-lines] [-legacy-effective-date] <bulletin.txt> | -types")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}
	text := string(data)
	lines := strings.Split(text, "\n")

	fmt.Printf("=== %s ===\n\n", flag.Arg(0))

	for _, section := range []extract.Section{extract.Incorporations, extract.NameChanges} {
		sectionLines, open := section.Scan(lines)
		fmt.Printf("%s: %d record lines\n", section.Name, len(sectionLines))
		if open {
			fmt.Printf("  end header %q never found, last run discarded\n", section.End)
		}
		if *showLines {
			for i, line := range sectionLines {
				fmt.Printf("  %4d  %s\n", i+1, line)
			}
		}
	}
	fmt.Println()

	records := extract.NewParser(extract.NewBuilder(*legacy)).Parse(text)
	fmt.Printf("Incorporations: %d\n", len(records.Incorporations))
	fmt.Printf("Name changes:   %d\n", len(records.NameChanges))
	fmt.Printf("Dropped lines:  %d\n", len(records.Failures))

	if len(records.Failures) > 0 {
		fmt.Println(strings.Repeat("-", 60))
		for _, f := range records.Failures {
			fmt.Printf("[%s] %v\n    %s\n", f.Section, f.Err, f.Line)
		}
	}
}
