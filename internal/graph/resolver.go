package graph

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/recallhq/recall/internal/analyzer"
	"github.com/recallhq/recall/internal/identity"
	"github.com/recallhq/recall/pkg/types"
)

// resolver carries the name->ID maps built over one parsed batch. Calls and
// class references resolve only against the batch being indexed, never the
// whole historical graph, so a delta run resolves against exactly what it
// parsed plus whatever the caller chose to pass in.
type resolver struct {
	fnsByName   map[string][]string // bare function/method name -> candidate fn_ids
	classByName map[string]string   // class name -> class_id, first declaration wins
}

func buildResolver(parsed []*types.ParsedFile) *resolver {
	res := &resolver{
		fnsByName:   make(map[string][]string),
		classByName: make(map[string]string),
	}
	for _, pf := range parsed {
		for i := range pf.Functions {
			fn := &pf.Functions[i]
			id := identity.FunctionID(pf.Path, fn.QualifiedName)
			res.fnsByName[fn.Name] = append(res.fnsByName[fn.Name], id)
		}
		for i := range pf.Classes {
			cl := &pf.Classes[i]
			if _, ok := res.classByName[cl.Name]; !ok {
				res.classByName[cl.Name] = identity.ClassID(pf.Path, cl.Name)
			}
		}
	}
	return res
}

// classTarget resolves a class or module name within the batch, keeping an
// external: placeholder when the name is not part of the indexed project.
func (r *resolver) classTarget(name string) string {
	if id, ok := r.classByName[name]; ok {
		return id
	}
	return identity.External(name)
}

type insertCounts struct {
	functions int
	classes   int
	edges     int
}

// insertFile upserts one file's nodes and edges. Each statement is atomic on
// its own; a failure partway leaves the graph consistent up to the last
// applied statement, and the deterministic IDs make the re-run converge.
func (idx *Indexer) insertFile(ctx context.Context, project string, res *resolver, pf *types.ParsedFile) (insertCounts, error) {
	var counts insertCounts

	fileID := identity.FileID(pf.Path)
	if err := idx.store.UpsertFileNode(ctx, &types.FileNode{
		FileID:   fileID,
		Path:     pf.Path,
		Module:   moduleOf(pf.Path),
		Language: pf.Language,
		Project:  project,
	}); err != nil {
		return counts, fmt.Errorf("file node: %w", err)
	}

	var edges []types.Edge

	for i := range pf.Functions {
		fn := &pf.Functions[i]
		fnID := identity.FunctionID(pf.Path, fn.QualifiedName)
		if err := idx.store.UpsertFunction(ctx, &types.FunctionNode{
			FnID:      fnID,
			Name:      fn.Name,
			FileID:    fileID,
			ClassName: fn.ClassName,
			IsExport:  fn.IsExport,
			IsAsync:   fn.IsAsync,
			Language:  pf.Language,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			Project:   project,
		}); err != nil {
			return counts, fmt.Errorf("function %s: %w", fn.QualifiedName, err)
		}
		counts.functions++

		edges = append(edges, types.Edge{FromID: fileID, ToID: fnID, Kind: types.EdgeDeclares})

		// Every candidate gets an edge: with no type information the
		// ambiguity is preserved, not guessed away. Names nothing in the
		// batch declares produce no edge at all.
		for _, callee := range fn.Calls {
			for _, target := range res.fnsByName[callee] {
				if target == fnID {
					continue // recursion is not an edge
				}
				edges = append(edges, types.Edge{FromID: fnID, ToID: target, Kind: types.EdgeCalls})
			}
		}
	}

	for i := range pf.Classes {
		cl := &pf.Classes[i]
		classID := identity.ClassID(pf.Path, cl.Name)

		parent := ""
		if cl.ParentClass != "" {
			parent = res.classTarget(cl.ParentClass)
		}
		if err := idx.store.UpsertClass(ctx, &types.ClassNode{
			ClassID:     classID,
			Name:        cl.Name,
			FileID:      fileID,
			ClassType:   cl.ClassType,
			ParentClass: parent,
			Methods:     methodNames(pf, cl.Name),
			StartLine:   cl.StartLine,
			EndLine:     cl.EndLine,
			Project:     project,
		}); err != nil {
			return counts, fmt.Errorf("class %s: %w", cl.Name, err)
		}
		counts.classes++

		if parent != "" {
			edges = append(edges, types.Edge{FromID: classID, ToID: parent, Kind: types.EdgeExtends})
		}
		for _, mod := range cl.Includes {
			edges = append(edges, types.Edge{FromID: classID, ToID: res.classTarget(mod), Kind: types.EdgeIncludes})
		}
		for _, assoc := range cl.Associations {
			edges = append(edges, types.Edge{
				FromID: classID,
				ToID:   res.classTarget(assoc.TargetClass),
				Kind:   types.EdgeAssociation,
				Attr:   string(assoc.Kind),
			})
		}
		if cl.Serializes != "" {
			edges = append(edges, types.Edge{FromID: classID, ToID: res.classTarget(cl.Serializes), Kind: types.EdgeSerializes})
		}
		for _, callee := range cl.Calls {
			for _, target := range res.fnsByName[callee] {
				edges = append(edges, types.Edge{FromID: classID, ToID: target, Kind: types.EdgeComponentCalls})
			}
		}
	}

	for i := range pf.Imports {
		imp := &pf.Imports[i]
		edges = append(edges, types.Edge{
			FromID: fileID,
			ToID:   importTarget(project, pf, imp),
			Kind:   types.EdgeImports,
			Attr:   strings.Join(imp.Names, ","),
		})
	}

	if err := idx.store.InsertEdges(ctx, edges); err != nil {
		return counts, fmt.Errorf("edges: %w", err)
	}
	counts.edges = len(edges)
	return counts, nil
}

// importTarget maps an import statement onto its graph endpoint: a bare
// source becomes a module: pseudo-target, a relative source resolves through
// the filesystem to the same file_id hashing the File nodes use, and a
// relative source that resolves to nothing keeps an external: placeholder.
func importTarget(project string, pf *types.ParsedFile, imp *types.ImportStmt) string {
	if !imp.IsRelative {
		return identity.Module(imp.Source)
	}

	base := path.Join(path.Dir(pf.Path), imp.Source)
	if base == ".." || strings.HasPrefix(base, "../") {
		// Escapes the project root
		return identity.External(imp.Source)
	}
	for _, candidate := range analyzer.PossiblePaths(pf.Language, base) {
		if _, err := os.Stat(filepath.Join(project, filepath.FromSlash(candidate))); err == nil {
			return identity.FileID(candidate)
		}
	}
	return identity.External(imp.Source)
}

// moduleOf derives the module label from a relative path: the top-level
// directory, or "." for files at the project root.
func moduleOf(relPath string) string {
	relPath = path.Clean(relPath)
	if i := strings.IndexByte(relPath, '/'); i > 0 {
		return relPath[:i]
	}
	return "."
}

// methodNames collects the file's function names declared under className,
// in source order
func methodNames(pf *types.ParsedFile, className string) []string {
	var names []string
	for i := range pf.Functions {
		if pf.Functions[i].ClassName == className {
			names = append(names, pf.Functions[i].Name)
		}
	}
	return names
}
