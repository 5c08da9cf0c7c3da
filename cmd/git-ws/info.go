package main

import (
	"fmt"
)

func runInfo(args []string) int {
	if len(args) == 0 {
		return fatalf("info requires a subcommand: main-path, workspace-path, project-paths, dep-tree")
	}
	root, meta, err := openWorkspace()
	if err != nil {
		return fatalf("%v", err)
	}

	switch args[0] {
	case "main-path":
		fmt.Println(meta.MainPath)
		return 0

	case "workspace-path":
		fmt.Println(root)
		return 0

	case "project-paths":
		result, err := resolveWorkspace(root, meta, nil)
		if err != nil {
			return fatalf("resolving manifest: %v", err)
		}
		for _, p := range result.Projects {
			fmt.Println(p.Path)
		}
		return 0

	case "dep-tree":
		result, err := resolveWorkspace(root, meta, nil)
		if err != nil {
			return fatalf("resolving manifest: %v", err)
		}
		for _, p := range result.Projects {
			indent := ""
			for i := 0; i < p.Level; i++ {
				indent += "  "
			}
			fmt.Printf("%s%s (%s)\n", indent, p.Name, p.Path)
		}
		return 0

	default:
		return fatalf("info: unknown subcommand %q", args[0])
	}
}
