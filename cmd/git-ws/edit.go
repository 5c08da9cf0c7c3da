package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/utilitywarehouse/git-ws/manifest"
	"github.com/utilitywarehouse/git-ws/workspace"
)

func loadMainManifest(root string, meta *workspace.Metadata) (*manifest.ManifestSpec, string, error) {
	path := filepath.Join(root, meta.MainPath, effectiveManifestPath(meta))
	m, err := manifest.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading main manifest: %w", err)
	}
	return m, path, nil
}

func runDep(args []string) int {
	if len(args) == 0 {
		return fatalf("dep requires a subcommand: add, remove, list")
	}
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	m, path, err := loadMainManifest(root, meta)
	if err != nil {
		return fatalf("%v", err)
	}

	switch args[0] {
	case "list":
		for _, d := range m.Dependencies {
			fmt.Printf("%s\t%s\t%s\n", d.Name, d.EffectivePath(), d.Revision)
		}
		return 0

	case "add":
		fs := flag.NewFlagSet("dep add", flag.ContinueOnError)
		remote := fs.String("remote", "", "named remote to resolve the URL against")
		url := fs.String("url", "", "explicit URL, mutually exclusive with -remote")
		subURL := fs.String("sub-url", "", "path appended to the remote's url_base")
		revision := fs.String("revision", "", "pinned revision: branch, tag, or SHA")
		path2 := fs.String("path", "", "workspace-relative checkout path, defaults to the dependency name")
		groups := fs.String("groups", "", "comma-separated groups this dependency belongs to")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			return fatalf("dep add requires a name argument")
		}
		dep := manifest.ProjectSpec{
			Name:     fs.Arg(0),
			Remote:   *remote,
			URL:      *url,
			SubURL:   *subURL,
			Revision: *revision,
			Path:     *path2,
			Groups:   splitFilters(*groups),
		}
		m.Dependencies = append(m.Dependencies, dep)
		if err := manifest.Validate(m); err != nil {
			return fatalf("invalid manifest after add: %v", err)
		}
		if err := manifest.Save(path, m); err != nil {
			return fatalf("saving manifest: %v", err)
		}
		return 0

	case "remove":
		if len(args) < 2 {
			return fatalf("dep remove requires a name argument")
		}
		name := args[1]
		var kept []manifest.ProjectSpec
		removed := false
		for _, d := range m.Dependencies {
			if d.Name == name {
				removed = true
				continue
			}
			kept = append(kept, d)
		}
		if !removed {
			return fatalf("no dependency named %q", name)
		}
		m.Dependencies = kept
		if err := manifest.Save(path, m); err != nil {
			return fatalf("saving manifest: %v", err)
		}
		return 0

	default:
		return fatalf("dep: unknown subcommand %q", args[0])
	}
}

func runRemote(args []string) int {
	if len(args) == 0 {
		return fatalf("remote requires a subcommand: add, remove, list")
	}
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	m, path, err := loadMainManifest(root, meta)
	if err != nil {
		return fatalf("%v", err)
	}

	switch args[0] {
	case "list":
		for _, r := range m.Remotes {
			fmt.Printf("%s\t%s\n", r.Name, r.URLBase)
		}
		return 0

	case "add":
		if len(args) < 3 {
			return fatalf("remote add requires name and url_base arguments")
		}
		m.Remotes = append(m.Remotes, manifest.Remote{Name: args[1], URLBase: args[2]})
		if err := manifest.Validate(m); err != nil {
			return fatalf("invalid manifest after add: %v", err)
		}
		if err := manifest.Save(path, m); err != nil {
			return fatalf("saving manifest: %v", err)
		}
		return 0

	case "remove":
		if len(args) < 2 {
			return fatalf("remote remove requires a name argument")
		}
		name := args[1]
		var kept []manifest.Remote
		for _, r := range m.Remotes {
			if r.Name != name {
				kept = append(kept, r)
			}
		}
		m.Remotes = kept
		if err := manifest.Save(path, m); err != nil {
			return fatalf("saving manifest: %v", err)
		}
		return 0

	default:
		return fatalf("remote: unknown subcommand %q", args[0])
	}
}

func runDefault(args []string) int {
	if len(args) < 2 {
		return fatalf("default requires a field and a value, e.g. `default revision main`")
	}
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	m, path, err := loadMainManifest(root, meta)
	if err != nil {
		return fatalf("%v", err)
	}

	switch args[0] {
	case "remote":
		m.Defaults.Remote = args[1]
	case "revision":
		m.Defaults.Revision = args[1]
	case "groups":
		m.Defaults.Groups = splitFilters(args[1])
	case "with_groups":
		m.Defaults.WithGroups = splitFilters(args[1])
	case "submodules":
		v := args[1] == "true"
		m.Defaults.Submodules = &v
	default:
		return fatalf("default: unknown field %q", args[0])
	}
	if err := manifest.Save(path, m); err != nil {
		return fatalf("saving manifest: %v", err)
	}
	return 0
}

func runGroupFilters(args []string) int {
	if len(args) == 0 {
		return fatalf("group-filters requires a subcommand: add, remove, list")
	}
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}
	m, path, err := loadMainManifest(root, meta)
	if err != nil {
		return fatalf("%v", err)
	}

	switch args[0] {
	case "list":
		for _, f := range m.GroupFilters {
			fmt.Println(f)
		}
		return 0

	case "add":
		if len(args) < 2 {
			return fatalf("group-filters add requires an expression, e.g. +dev")
		}
		if _, err := manifest.ParseFilter(args[1]); err != nil {
			return fatalf("invalid filter expression %q: %v", args[1], err)
		}
		m.GroupFilters = append(m.GroupFilters, args[1])
		if err := manifest.Save(path, m); err != nil {
			return fatalf("saving manifest: %v", err)
		}
		return 0

	case "remove":
		if len(args) < 2 {
			return fatalf("group-filters remove requires an expression")
		}
		var kept []string
		for _, f := range m.GroupFilters {
			if f != args[1] {
				kept = append(kept, f)
			}
		}
		m.GroupFilters = kept
		if err := manifest.Save(path, m); err != nil {
			return fatalf("saving manifest: %v", err)
		}
		return 0

	default:
		return fatalf("group-filters: unknown subcommand %q", args[0])
	}
}
