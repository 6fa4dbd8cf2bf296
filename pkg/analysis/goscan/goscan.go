// Package goscan analyzes a Go project on the local filesystem and builds
// an analysis snapshot from it: domain modules derived from top-level
// directories, relationships from import statements, file listings,
// exported symbols, and per-file annotations from doc comments.
package goscan

import (
	"bufio"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"onionscope/pkg/analysis"
	"onionscope/pkg/errors"
	"onionscope/pkg/graph"
	"onionscope/pkg/onion"
)

// Scanner walks a Go project rooted at a directory and produces a
// Snapshot. The zero value is not usable; create one with NewScanner.
type Scanner struct {
	root   string
	logger *log.Logger
}

// NewScanner creates a scanner for the project at root.
func NewScanner(root string, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{root: root, logger: logger}
}

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	"vendor":       true,
	"testdata":     true,
	"node_modules": true,
	".git":         true,
}

// goFile is one parsed source file.
type goFile struct {
	relPath   string
	pkgName   string
	isMain    bool
	lineCount int
	imports   []string
	doc       string   // package doc comment, if this file carries it
	exports   []symbol // exported top-level declarations
}

type symbol struct {
	name string
	kind string
	line int
	doc  string
}

// Scan parses every Go source file under the root and assembles the
// snapshot. Vendor trees, testdata and hidden directories are skipped;
// _test.go files count toward line totals but not exports.
func (s *Scanner) Scan() (*analysis.Snapshot, error) {
	start := time.Now()

	modulePath, err := readModulePath(filepath.Join(s.root, "go.mod"))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scanning project", "root", s.root, "module", modulePath)

	files, err := s.parseTree()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no Go source files under %s", s.root)
	}

	snap := s.assemble(modulePath, files)
	s.logger.Info("scan complete",
		"modules", len(snap.Domain.Nodes),
		"files", snap.Intent.FileCount,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return snap, nil
}

// parseTree walks the project and parses each Go file.
func (s *Scanner) parseTree() ([]goFile, error) {
	var files []goFile
	fset := token.NewFileSet()

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == s.root {
				return nil
			}
			if skipDirs[name] || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		parsed, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			// Broken files still exist in the tree; log and move on.
			s.logger.Warn("skipping unparsable file", "path", rel, "err", err)
			return nil
		}

		f := goFile{
			relPath:   rel,
			pkgName:   parsed.Name.Name,
			isMain:    parsed.Name.Name == "main",
			lineCount: countLines(src),
		}
		for _, imp := range parsed.Imports {
			f.imports = append(f.imports, strings.Trim(imp.Path.Value, `"`))
		}
		if parsed.Doc != nil {
			f.doc = strings.TrimSpace(parsed.Doc.Text())
		}
		if !strings.HasSuffix(name, "_test.go") {
			f.exports = collectExports(fset, parsed)
		}

		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to walk %s", s.root)
	}
	return files, nil
}

// assemble groups parsed files into domain modules and derives every layer
// payload from them.
func (s *Scanner) assemble(modulePath string, files []goFile) *analysis.Snapshot {
	modules := groupByModule(files)

	moduleIDs := make([]string, 0, len(modules))
	for id := range modules {
		moduleIDs = append(moduleIDs, id)
	}
	sort.Strings(moduleIDs)

	snap := &analysis.Snapshot{
		GeneratedAt: time.Now().UTC(),
		Root:        s.root,
		Files:       make(map[string][]graph.ModuleFile),
		Symbols:     make(map[string][]onion.Symbol),
		Annotations: make(map[string]graph.Annotation),
	}

	var totalFiles, totalLines int
	var entryPoints []string

	for _, id := range moduleIDs {
		mod := modules[id]

		node := graph.DomainNode{
			ID:                id,
			Name:              id,
			Path:              id,
			Type:              inferNodeType(id),
			ArchitectureLayer: inferTier(id),
		}
		for _, f := range mod {
			node.FileCount++
			node.LineCount += f.lineCount
			totalFiles++
			totalLines += f.lineCount
			if f.isMain {
				dir := filepath.ToSlash(filepath.Dir(f.relPath))
				if !contains(entryPoints, dir) {
					entryPoints = append(entryPoints, dir)
				}
			}
			for _, sym := range f.exports {
				node.Exports = appendUnique(node.Exports, sym.name)
				snap.Symbols[id] = append(snap.Symbols[id], onion.Symbol{
					Name:     sym.name,
					Kind:     sym.kind,
					File:     f.relPath,
					Line:     sym.line,
					Exported: true,
					Doc:      firstSentence(sym.doc),
				})
			}
			snap.Annotations[f.relPath] = annotate(f)
		}
		sort.Strings(node.Exports)

		for _, dep := range moduleImports(modulePath, mod) {
			if dep != id {
				node.Dependencies = appendUnique(node.Dependencies, dep)
			}
		}
		sort.Strings(node.Dependencies)

		snap.Domain.Nodes = append(snap.Domain.Nodes, node)
		snap.Files[id] = listChildren(s.root, id)
	}

	for _, node := range snap.Domain.Nodes {
		for _, dep := range node.Dependencies {
			if _, ok := modules[dep]; ok {
				snap.Domain.Relationships = append(snap.Domain.Relationships, graph.DomainRelationship{
					Source: node.ID,
					Target: dep,
					Type:   graph.RelationImport,
				})
			}
		}
	}
	snap.Domain.Normalize()

	sort.Strings(entryPoints)
	snap.Intent = onion.ProjectIntentData{
		Name:        filepath.Base(modulePath),
		Description: readDescription(s.root),
		Languages:   []string{"Go"},
		ModuleCount: len(snap.Domain.Nodes),
		FileCount:   totalFiles,
		LineCount:   totalLines,
		EntryPoints: entryPoints,
	}
	snap.Processes = deriveProcesses(modulePath, modules, entryPoints)
	return snap
}

// groupByModule buckets files by their top-level directory. Files directly
// at the project root form the "." module.
func groupByModule(files []goFile) map[string][]goFile {
	out := make(map[string][]goFile)
	for _, f := range files {
		id := "."
		if i := strings.IndexByte(f.relPath, '/'); i >= 0 {
			id = f.relPath[:i]
		}
		out[id] = append(out[id], f)
	}
	return out
}

// moduleImports maps a module's internal imports to top-level module ids.
func moduleImports(modulePath string, files []goFile) []string {
	var out []string
	prefix := modulePath + "/"
	for _, f := range files {
		for _, imp := range f.imports {
			switch {
			case imp == modulePath:
				out = appendUnique(out, ".")
			case strings.HasPrefix(imp, prefix):
				rest := strings.TrimPrefix(imp, prefix)
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					rest = rest[:i]
				}
				out = appendUnique(out, rest)
			}
		}
	}
	return out
}

// listChildren returns a module directory's immediate entries.
func listChildren(root, moduleID string) []graph.ModuleFile {
	dir := filepath.Join(root, filepath.FromSlash(moduleID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []graph.ModuleFile
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}
		rel := name
		if moduleID != "." {
			rel = moduleID + "/" + name
		}
		mf := graph.ModuleFile{ID: rel, Name: name, Path: rel}
		if e.IsDir() {
			mf.Type = graph.FileTypeDirectory
		} else {
			mf.Type = graph.FileTypeFile
			mf.Language = languageOf(name)
			if src, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
				mf.LineCount = countLines(src)
			}
		}
		out = append(out, mf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// deriveProcesses builds one key process per entry point: the run flow
// from the main package through the internal modules it imports.
func deriveProcesses(modulePath string, modules map[string][]goFile, entryPoints []string) []onion.Process {
	var out []onion.Process
	for _, entry := range entryPoints {
		top := entry
		if i := strings.IndexByte(top, '/'); i >= 0 {
			top = top[:i]
		}
		deps := moduleImports(modulePath, modules[top])
		sort.Strings(deps)

		proc := onion.Process{
			ID:          "run-" + strings.ReplaceAll(entry, "/", "-"),
			Name:        "Run " + filepath.Base(entry),
			Description: "Startup flow of the " + entry + " entry point.",
			Steps:       []onion.ProcessStep{{Order: 1, Module: top, Action: "start"}},
		}
		order := 2
		for _, dep := range deps {
			if dep == top {
				continue
			}
			proc.Steps = append(proc.Steps, onion.ProcessStep{
				Order:  order,
				Module: dep,
				Action: "initialize",
			})
			order++
		}
		out = append(out, proc)
	}
	return out
}

// annotate derives a file's annotation from its doc comment, falling back
// to a generic summary.
func annotate(f goFile) graph.Annotation {
	ann := graph.Annotation{Path: f.relPath}
	if f.doc != "" {
		ann.Summary = firstSentence(f.doc)
		ann.Purpose = f.doc
		return ann
	}
	ann.Summary = "Go source file in package " + f.pkgName + "."
	return ann
}

// =============================================================================
// Parsing Helpers
// =============================================================================

// readModulePath extracts the module path from a go.mod file.
func readModulePath(path string) (string, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", errors.New(errors.ErrCodeInvalidInput, "%s: not a Go module (no go.mod)", filepath.Dir(path))
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "failed to read go.mod")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "go.mod has no module directive")
}

// collectExports lists a file's exported top-level declarations.
func collectExports(fset *token.FileSet, file *ast.File) []symbol {
	var out []symbol
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if !d.Name.IsExported() {
				continue
			}
			kind := "func"
			if d.Recv != nil {
				kind = "method"
			}
			out = append(out, symbol{
				name: d.Name.Name,
				kind: kind,
				line: fset.Position(d.Pos()).Line,
				doc:  d.Doc.Text(),
			})
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch sp := spec.(type) {
				case *ast.TypeSpec:
					if sp.Name.IsExported() {
						out = append(out, symbol{
							name: sp.Name.Name,
							kind: "type",
							line: fset.Position(sp.Pos()).Line,
							doc:  d.Doc.Text(),
						})
					}
				case *ast.ValueSpec:
					kind := "var"
					if d.Tok == token.CONST {
						kind = "const"
					}
					for _, name := range sp.Names {
						if name.IsExported() {
							out = append(out, symbol{
								name: name.Name,
								kind: kind,
								line: fset.Position(name.Pos()).Line,
							})
						}
					}
				}
			}
		}
	}
	return out
}

// inferTier guesses a module's architecture tier from its directory name.
func inferTier(id string) graph.Tier {
	switch id {
	case "cmd", "ui", "web", "tui", "app", "api", "frontend":
		return graph.TierPresentation
	case "store", "storage", "db", "database", "repo", "repository", "models", "model", "schema", "migrations":
		return graph.TierData
	case "config", "infra", "observability", "metrics", "telemetry", "logging", "build":
		return graph.TierInfrastructure
	default:
		return graph.TierBusiness
	}
}

// inferNodeType guesses a module's role from its directory name.
func inferNodeType(id string) graph.NodeType {
	switch id {
	case "cmd", "ui", "web", "tui", "app", "api", "frontend":
		return graph.NodeTypePresentation
	case "store", "storage", "db", "database", "repo", "repository", "models", "model":
		return graph.NodeTypeData
	case "config", "infra", "observability", "metrics", "telemetry":
		return graph.NodeTypeInfrastructure
	case "util", "utils", "helpers", "tools":
		return graph.NodeTypeUtility
	case "internal", "pkg", "core", "domain", ".":
		return graph.NodeTypeCore
	default:
		return graph.NodeTypeUnknown
	}
}

// languageOf maps a file extension to a display language.
func languageOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".go":
		return "Go"
	case ".md":
		return "Markdown"
	case ".json":
		return "JSON"
	case ".yaml", ".yml":
		return "YAML"
	case ".toml":
		return "TOML"
	case ".sh":
		return "Shell"
	case ".sql":
		return "SQL"
	case ".proto":
		return "Protobuf"
	default:
		return ""
	}
}

// readDescription pulls the first paragraph out of the project README.
func readDescription(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	if err != nil {
		return ""
	}
	for _, para := range strings.Split(string(data), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || strings.HasPrefix(para, "#") || strings.HasPrefix(para, "!") || strings.HasPrefix(para, "[") {
			continue
		}
		return firstSentence(para)
	}
	return ""
}

// firstSentence truncates text at the first sentence boundary.
func firstSentence(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	return text
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := 1
	for _, b := range src {
		if b == '\n' {
			n++
		}
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}
