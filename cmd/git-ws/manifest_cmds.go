package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/utilitywarehouse/git-ws/manifest"
	"github.com/utilitywarehouse/git-ws/transform"
	"github.com/utilitywarehouse/git-ws/workspace"
)

func runManifest(args []string) int {
	if len(args) == 0 {
		return fatalf("manifest requires a subcommand: resolve, freeze, validate, upgrade, path, paths, create")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "resolve":
		return manifestResolve(rest)
	case "freeze":
		return manifestFreeze(rest)
	case "validate":
		return manifestValidate(rest)
	case "upgrade":
		return manifestUpgrade(rest)
	case "path":
		return manifestPath(rest)
	case "paths":
		return manifestPaths(rest)
	case "create":
		return manifestCreate(rest)
	default:
		return fatalf("manifest: unknown subcommand %q", sub)
	}
}

func manifestResolve(args []string) int {
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	result, err := resolveWorkspace(root, meta, nil)
	if err != nil {
		return fatalf("resolving manifest: %v", err)
	}
	return printManifest(transform.Resolve(result))
}

func manifestFreeze(args []string) int {
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	result, err := resolveWorkspace(root, meta, nil)
	if err != nil {
		return fatalf("resolving manifest: %v", err)
	}
	driver := workspace.NewExecDriver(logger)
	frozen, err := transform.Freeze(cliContext(), root, result, driver)
	if err != nil {
		return fatalf("freezing manifest: %v", err)
	}
	return printManifest(frozen)
}

func manifestValidate(args []string) int {
	fs := flag.NewFlagSet("manifest validate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path := manifest.DefaultFilename
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fatalf("reading %s: %v", path, err)
	}
	if err := transform.Validate(raw); err != nil {
		return fatalf("%s is invalid: %v", path, err)
	}
	fmt.Printf("%s is valid\n", path)
	return 0
}

func manifestUpgrade(args []string) int {
	fs := flag.NewFlagSet("manifest upgrade", flag.ContinueOnError)
	write := fs.Bool("write", false, "overwrite the file in place instead of printing to stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path := manifest.DefaultFilename
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fatalf("reading %s: %v", path, err)
	}
	upgraded, err := transform.Upgrade(raw)
	if err != nil {
		return fatalf("upgrading %s: %v", path, err)
	}
	if *write {
		if err := manifest.Save(path, upgraded); err != nil {
			return fatalf("saving %s: %v", path, err)
		}
		fmt.Printf("%s upgraded to schema version %d\n", path, upgraded.Version)
		return 0
	}
	return printManifest(upgraded)
}

func manifestPath(args []string) int {
	_, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	fmt.Println(effectiveManifestPath(meta))
	return 0
}

func manifestPaths(args []string) int {
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	result, err := resolveWorkspace(root, meta, nil)
	if err != nil {
		return fatalf("resolving manifest: %v", err)
	}
	for _, p := range result.Projects {
		if p.ManifestPath != "" {
			fmt.Println(p.Path + "/" + p.ManifestPath)
		}
	}
	return 0
}

func manifestCreate(args []string) int {
	fs := flag.NewFlagSet("manifest create", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path := manifest.DefaultFilename
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	m := &manifest.ManifestSpec{Version: manifest.CurrentSchemaVersion}
	if err := manifest.Save(path, m); err != nil {
		return fatalf("creating %s: %v", path, err)
	}
	fmt.Printf("created %s\n", path)
	return 0
}

func printManifest(m *manifest.ManifestSpec) int {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(m); err != nil {
		return fatalf("encoding manifest: %v", err)
	}
	fmt.Print(buf.String())
	return 0
}
