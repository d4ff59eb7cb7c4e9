package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "roomnav/server"

// corePackages hold the navigation core. They must stay free of rooms,
// transport and logging so they can be reused on their own.
var corePackages = []string{
	modulePath + "/internal/grid",
	modulePath + "/internal/tiles",
	modulePath + "/internal/pathfinding",
}

var forbiddenForCore = []string{
	modulePath + "/internal/room",
	modulePath + "/internal/roommodel",
	modulePath + "/internal/net",
	modulePath + "/internal/app",
	modulePath + "/internal/render",
	modulePath + "/logging",
}

type packageInfo struct {
	ImportPath string
	Imports    []string
}

func isCore(importPath string) bool {
	for _, core := range corePackages {
		if importPath == core {
			return true
		}
	}
	return false
}

func forbidden(imp string) bool {
	for _, prefix := range forbiddenForCore {
		if imp == prefix || strings.HasPrefix(imp, prefix+"/") {
			return true
		}
	}
	return false
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}
		if !isCore(pkg.ImportPath) {
			continue
		}
		for _, imp := range pkg.Imports {
			if forbidden(imp) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}
