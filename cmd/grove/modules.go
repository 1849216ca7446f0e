package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/grove"
	"github.com/jward/grove/internal/modules"
)

var modulesCmd = &cobra.Command{
	Use:   "modules [path]",
	Short: "Print the module tree of a crate",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModules,
}

func runModules(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	proj, root, err := buildReadonly(context.Background(), targetDir)
	if err != nil {
		return outputError("modules", err)
	}
	tree, _ := root.ModuleTree()
	return outputResult(CLIResult{Command: "modules", Results: moduleTreeToCLI(proj, tree)})
}

func moduleTreeToCLI(proj *project, tree *modules.TreeDescriptor) CLIModuleTree {
	name := func(id grove.FileID) string { return proj.paths[id] }
	out := CLIModuleTree{
		Files:      []CLIFile{},
		Roots:      []string{},
		Links:      []CLILink{},
		Unresolved: []CLILink{},
	}
	for _, id := range tree.Files() {
		out.Files = append(out.Files, CLIFile{ID: uint32(id), Path: name(id)})
	}
	for _, id := range tree.Roots() {
		out.Roots = append(out.Roots, name(id))
	}
	for _, l := range tree.Links() {
		link := CLILink{Parent: name(l.Parent), Name: l.Name, Resolved: l.Resolved}
		if l.Resolved {
			link.Child = name(l.Child)
		}
		out.Links = append(out.Links, link)
		if !l.Resolved {
			out.Unresolved = append(out.Unresolved, link)
		}
	}
	return out
}
