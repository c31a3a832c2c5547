// Command replay inspects and verifies compressed session journals.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rogersf/court-engine/content"
	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/court"
	"github.com/rogersf/court-engine/internal/journal"
)

func main() {
	var (
		dir       = flag.String("dir", "", "journal directory containing *.jsonl.zst")
		file      = flag.String("file", "", "single journal file (overrides -dir)")
		eventsDir = flag.String("events", "", "events directory the sessions were played with (default: embedded content)")
		dump      = flag.Bool("dump", false, "print every entry instead of verifying")
	)
	flag.Parse()

	var files []string
	switch {
	case *file != "":
		files = []string{*file}
	case *dir != "":
		var err error
		files, err = journal.ListFiles(*dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list journals:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "missing -dir or -file")
		os.Exit(2)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *dir)
		os.Exit(1)
	}

	if *dump {
		for _, path := range files {
			if err := dumpFile(path); err != nil {
				fmt.Fprintln(os.Stderr, "dump:", err)
				os.Exit(1)
			}
		}
		return
	}

	cat, err := loadCatalog(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load events:", err)
		os.Exit(1)
	}

	failed := 0
	for _, path := range files {
		res, err := court.ReplayFile(cat, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		result := "running"
		if res.Outcome != nil {
			result = fmt.Sprintf("%s on day %d (%s)", res.Outcome.Result, res.Outcome.Day, res.Outcome.Cause)
		}
		fmt.Printf("%s seed=%d actions=%d day=%d money=%.1f love=%.1f respect=%.1f %s\n",
			res.SessionID, res.Seed, res.Actions, res.Final.Day, res.Final.Money, res.Final.Love, res.Final.Respect, result)
		if !res.OK() {
			failed++
			for _, m := range res.Mismatches {
				fmt.Fprintf(os.Stderr, "  mismatch: %s\n", m)
			}
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "replay failed: %d of %d journals\n", failed, len(files))
		os.Exit(1)
	}
	fmt.Printf("replay ok: %d journals\n", len(files))
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return content.Catalog()
	}
	return catalog.LoadDir(dir)
}

func dumpFile(path string) error {
	fmt.Println("#", path)
	return journal.ReadFile(path, func(e journal.Entry) error {
		fmt.Printf("%6d day=%-3d %-18s %s\n", e.Seq, e.Day, e.Type, e.Payload)
		return nil
	})
}
