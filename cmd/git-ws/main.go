// Command git-ws composes a multi-repository workspace from a manifest:
// it resolves a dependency tree, clones and reconciles each project's
// working copy, and exposes the result through a handful of editing and
// introspection subcommands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/utilitywarehouse/git-ws/appconfig"
	"github.com/utilitywarehouse/git-ws/workspace"
)

// cliContext returns the background context used by one-shot subcommands.
// The serve subcommand builds its own cancellable context instead.
func cliContext() context.Context {
	return context.Background()
}

var (
	loggerLevel = new(slog.LevelVar)
	logger      *slog.Logger

	levelStrings = map[string]slog.Level{
		"trace": slog.Level(-8),
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

func init() {
	loggerLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: loggerLevel,
	}))
}

type subcommand struct {
	name string
	run  func(args []string) int
	help string
}

var subcommands []subcommand

func register(name, help string, run func(args []string) int) {
	subcommands = append(subcommands, subcommand{name: name, run: run, help: help})
}

func usage() {
	fmt.Fprintf(os.Stderr, "NAME:\n")
	fmt.Fprintf(os.Stderr, "\tgit-ws - compose and reconcile a manifest-driven multi-repository workspace\n")
	fmt.Fprintf(os.Stderr, "\nUsage:\n")
	fmt.Fprintf(os.Stderr, "\tgit-ws [global options] <command> [command options]\n")
	fmt.Fprintf(os.Stderr, "\nGLOBAL OPTIONS:\n")
	fmt.Fprintf(os.Stderr, "\t-log-level value  (default: 'info') Log level [$GIT_WS_LOG_LEVEL]\n")
	fmt.Fprintf(os.Stderr, "\nCOMMANDS:\n")
	for _, sc := range subcommands {
		fmt.Fprintf(os.Stderr, "\t%-16s %s\n", sc.name, sc.help)
	}
	os.Exit(2)
}

func init() {
	register("init", "record an already-checked-out main project as a workspace", runInit)
	register("clone", "clone a main project and initialize a workspace around it", runClone)
	register("update", "resolve the manifest and reconcile every project's working copy", runUpdate)
	register("checkout", "check out a revision in the main project, then reconcile", runCheckout)
	register("foreach", "run an arbitrary command in every resolved project", runForeach)
	register("git", "run `git <args>` in every resolved project", runGit)
	register("pull", "run `git pull` in every resolved project", runPull)
	register("push", "run `git push` in every resolved project", runPush)
	register("fetch", "run `git fetch` in every resolved project", runFetch)
	register("rebase", "run `git rebase` in every resolved project", runRebase)
	register("status", "run `git status` in every resolved project", runStatus)
	register("diff", "run `git diff` in every resolved project", runDiff)
	register("manifest", "manifest transform operations: resolve, freeze, validate, upgrade, path, paths, create", runManifest)
	register("dep", "add, remove, or list manifest dependencies", runDep)
	register("remote", "add, remove, or list manifest remotes", runRemote)
	register("default", "set a manifest default field", runDefault)
	register("group-filters", "add, remove, or list manifest group filters", runGroupFilters)
	register("info", "print workspace information: main-path, workspace-path, project-paths, dep-tree", runInfo)
	register("tag", "freeze the resolved manifest under a named snapshot", runTag)
	register("deinit", "remove workspace metadata, leaving working copies untouched", runDeinit)
	register("serve", "run update on an interval, serving /metrics and pprof", runServe)
	register("version", "print the build version", runVersion)
}

func main() {
	args := os.Args[1:]

	logLevel := appconfig.EnvString("GIT_WS_LOG_LEVEL", "info")
	for len(args) > 0 && strings.HasPrefix(args[0], "-log-level") {
		if args[0] == "-log-level" && len(args) > 1 {
			logLevel = args[1]
			args = args[2:]
		} else if v, ok := strings.CutPrefix(args[0], "-log-level="); ok {
			logLevel = v
			args = args[1:]
		} else {
			break
		}
	}
	if v, ok := levelStrings[strings.ToLower(logLevel)]; ok {
		loggerLevel.Set(v)
	}

	if len(args) == 0 {
		usage()
	}

	name := args[0]
	rest := args[1:]

	for _, sc := range subcommands {
		if sc.name == name {
			os.Exit(sc.run(rest))
		}
	}

	fmt.Fprintf(os.Stderr, "git-ws: unknown command %q\n\n", name)
	usage()
}

func runVersion(args []string) int {
	info, _ := debug.ReadBuildInfo()
	if info != nil {
		fmt.Printf("version=%s go=%s\n", info.Main.Version, info.GoVersion)
	}
	return 0
}

// openWorkspace finds the workspace root from the current directory and
// loads its persisted metadata, for the subcommands that operate on an
// existing workspace.
func openWorkspace() (root string, meta *workspace.Metadata, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	root, err = workspace.FindWorkspaceRoot(cwd)
	if err != nil {
		return "", nil, err
	}
	meta, err = workspace.LoadMetadata(root)
	if err != nil {
		return "", nil, err
	}
	return root, meta, nil
}

func fatalf(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "git-ws: "+format+"\n", args...)
	return 1
}
