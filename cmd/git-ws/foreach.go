package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/utilitywarehouse/git-ws/resolver"
)

// runForeach executes an arbitrary command in every resolved project's
// directory, streaming each project's output prefixed by its path.
func runForeach(args []string) int {
	if len(args) == 0 {
		return fatalf("foreach requires a command")
	}
	return foreachGit(args[0], args[1:]...)
}

func runGit(args []string) int {
	if len(args) == 0 {
		return fatalf("git requires at least one argument")
	}
	return foreachGit("git", args...)
}

func runPull(args []string) int  { return foreachGit("git", append([]string{"pull"}, args...)...) }
func runPush(args []string) int  { return foreachGit("git", append([]string{"push"}, args...)...) }
func runFetch(args []string) int { return foreachGit("git", append([]string{"fetch"}, args...)...) }
func runRebase(args []string) int {
	return foreachGit("git", append([]string{"rebase"}, args...)...)
}
func runStatus(args []string) int {
	return foreachGit("git", append([]string{"status", "--short"}, args...)...)
}
func runDiff(args []string) int { return foreachGit("git", append([]string{"diff"}, args...)...) }

func foreachGit(name string, args ...string) int {
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}

	result, err := resolveWorkspace(root, meta, nil)
	if err != nil {
		return fatalf("resolving manifest: %v", err)
	}

	ok := true
	for _, p := range result.Projects {
		if err := runIn(cliContext(), filepath.Join(root, p.Path), p, name, args...); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p.Path, err)
			ok = false
		}
	}
	if !ok {
		return 1
	}
	return 0
}

func runIn(ctx context.Context, dir string, p resolver.Project, name string, args ...string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("skipping: %w", err)
	}

	fmt.Printf("==> %s (%s)\n", p.Path, dirLabel(p))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func dirLabel(p resolver.Project) string {
	if p.IsMain {
		return "main"
	}
	return p.Name
}
