// Command guardlint reports nested lock acquisitions on sharedguard
// cells.
//
// Usage:
//
//	guardlint [-v] [path]
//
// path defaults to the current directory. The tool walks every Go file
// under the module containing path (skipping vendor and testdata),
// parses it, and prints one line per suspected nested acquisition. The
// exit status is 1 if anything was flagged.
package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

func main() {
	verbose := flag.Bool("v", false, "print every file as it is checked")
	flag.Parse()

	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	modRoot, modPath, err := findModule(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "guardlint: %v\n", err)
		os.Exit(2)
	}
	if *verbose {
		fmt.Printf("checking module %s (%s)\n", modPath, modRoot)
	}

	fset := token.NewFileSet()
	var findings int

	err = filepath.WalkDir(modRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if *verbose {
			fmt.Printf("  %s\n", path)
		}

		file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			fmt.Fprintf(os.Stderr, "guardlint: %v\n", err)
			return nil // keep going; a parse error is not our finding
		}
		for _, f := range lintFile(fset, file) {
			fmt.Println(f)
			findings++
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "guardlint: %v\n", err)
		os.Exit(2)
	}

	if findings > 0 {
		fmt.Fprintf(os.Stderr, "guardlint: %d nested acquisition(s)\n", findings)
		os.Exit(1)
	}
}

// findModule walks upward from dir to the enclosing go.mod and returns
// the module root directory and module path.
func findModule(dir string) (root, path string, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", err
	}
	for {
		gomod := filepath.Join(abs, "go.mod")
		if raw, err := os.ReadFile(gomod); err == nil {
			mf, err := modfile.Parse(gomod, raw, nil)
			if err != nil {
				return "", "", fmt.Errorf("parsing %s: %w", gomod, err)
			}
			return abs, mf.Module.Mod.Path, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", "", fmt.Errorf("no go.mod found above %s", dir)
		}
		abs = parent
	}
}
