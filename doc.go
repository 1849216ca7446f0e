// Package grove manages source roots for an incremental code-intelligence
// engine: collections of source files from which line indices, syntax trees,
// a module tree and symbol indexes are derived on demand.
//
// # Roots
//
// Two kinds of root implement [SourceRoot]:
//
//   - [WritableSourceRoot] is mutable. Edits arrive as batches through
//     [WritableSourceRoot.ApplyChanges] and every derived artifact is computed
//     lazily by an incremental query store, so only what an edit actually
//     affects is recomputed. Reads that span several files run against a
//     single snapshot and fail with [ErrCanceled] when a batch lands while
//     they run.
//
//   - [ReadonlySourceRoot] is immutable. Construction parses every file in
//     parallel, builds the module tree and the symbol index eagerly and then
//     drops the trees. Line indices and syntax trees are recomputed lazily
//     per file and memoized.
//
// # Usage
//
//	root := grove.NewWritableSourceRoot()
//	root.ApplyChanges([]grove.Change{
//		grove.SetText(1, "mod a;"),
//		grove.SetText(2, "fn foo() {}"),
//	}, modules.NameResolver{"a": 2})
//
//	tree, err := root.ModuleTree()
//	if errors.Is(err, grove.ErrCanceled) {
//		// retry against the new snapshot
//	}
//
// Asking either root for the lines or syntax of a file it does not contain
// is a programming error and panics with a [*MembershipFault].
package grove
