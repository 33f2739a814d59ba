// Package loader builds a kernelbp.Graph from a line-oriented graph
// definition and the plain-text matrix files it references.
//
// Record types (one per line, whitespace separated):
//
//	non_observed_node <id> [<a> <b> <file>]...      kernel K(a,b) of a hidden vertex
//	observed_node <id> [<neighbor> <file>]...       observation vector per neighbor
//	edge_non_observed_target <src> <tgt> [<name> <file>]...
//	edge_observed_target <src> <tgt> [<name> <file>]...
//
// Lines whose first token starts with '#', '/' or '%' are comments; blank
// lines are skipped; unknown record types are logged and skipped. Vertex
// records are applied before edge records, so file order does not matter.
// Relative matrix paths resolve against the base directory (the graph
// file's directory unless overridden).
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/kernelbp"
	"github.com/katalvlaran/kernelbp/matrix"
)

// Record type tokens.
const (
	TypeHiddenNode         = "non_observed_node"
	TypeObservedNode       = "observed_node"
	TypeEdgeHiddenTarget   = "edge_non_observed_target"
	TypeEdgeObservedTarget = "edge_observed_target"
)

// ErrSyntax indicates a malformed record.
var ErrSyntax = errors.New("loader: syntax error")

// Option configures a Loader.
type Option func(*Loader)

// WithBaseDir resolves relative matrix paths against dir instead of the
// graph file's directory.
func WithBaseDir(dir string) Option {
	return func(l *Loader) { l.baseDir = dir }
}

// WithPartitions sets the partition count of the built graph.
func WithPartitions(n int) Option {
	return func(l *Loader) { l.partitions = n }
}

// WithLogger sets the logger for skipped records and load summaries.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// Loader parses graph definitions. A Loader caches matrices by resolved
// path, so a file referenced many times is read once; it is not safe for
// concurrent use.
type Loader struct {
	baseDir    string
	partitions int
	logger     *slog.Logger
	cache      map[string]*matrix.Dense
}

// New returns a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{partitions: 1, logger: slog.Default(), cache: make(map[string]*matrix.Dense)}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoadFile parses the graph definition at path.
func (l *Loader) LoadFile(path string) (*kernelbp.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	base := l.baseDir
	if base == "" {
		base = filepath.Dir(path)
	}

	g, err := l.Load(f, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return g, nil
}

// record is one parsed, not yet applied, definition line.
type record struct {
	line   int
	kind   string
	fields []string
}

// Load parses a graph definition from r, resolving relative matrix paths
// against baseDir.
//
// Implementation:
//   - Stage 1: tokenize lines, drop blanks and comments, split vertex and edge records.
//   - Stage 2: apply vertex records.
//   - Stage 3: apply edge records.
//
// Errors:
//   - ErrSyntax for malformed ids or incomplete triples.
//   - matrix errors for unreadable or malformed matrix files.
//   - core errors for duplicate vertices, unknown endpoints, loops or parallel edges.
func (l *Loader) Load(r io.Reader, baseDir string) (*kernelbp.Graph, error) {
	var vertices, edges []record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || isComment(fields[0]) {
			continue
		}
		rec := record{line: line, kind: fields[0], fields: fields[1:]}
		switch rec.kind {
		case TypeHiddenNode, TypeObservedNode:
			vertices = append(vertices, rec)
		case TypeEdgeHiddenTarget, TypeEdgeObservedTarget:
			edges = append(edges, rec)
		default:
			l.logger.Warn("unknown record type skipped", slog.Int("line", line), slog.String("type", rec.kind))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	g := core.NewGraph[*kernelbp.VertexData, *kernelbp.EdgeData](core.WithPartitions(l.partitions))
	for _, rec := range vertices {
		if err := l.addVertex(g, rec, baseDir); err != nil {
			return nil, fmt.Errorf("line %d: %w", rec.line, err)
		}
	}
	for _, rec := range edges {
		if err := l.addEdge(g, rec, baseDir); err != nil {
			return nil, fmt.Errorf("line %d: %w", rec.line, err)
		}
	}
	l.logger.Info("graph loaded",
		slog.Int("vertices", g.VertexCount()),
		slog.Int("edges", g.EdgeCount()),
		slog.Int("matrices", len(l.cache)),
	)

	return g, nil
}

func isComment(tok string) bool {
	switch tok[0] {
	case '#', '/', '%':
		return true
	default:
		return false
	}
}

func parseID(tok string) (core.VertexID, bool) {
	id, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, false
	}

	return core.VertexID(id), true
}

func (l *Loader) addVertex(g *kernelbp.Graph, rec record, baseDir string) error {
	if len(rec.fields) == 0 {
		return fmt.Errorf("%s: missing vertex id: %w", rec.kind, ErrSyntax)
	}
	id, ok := parseID(rec.fields[0])
	if !ok {
		return fmt.Errorf("%s: vertex id %q: %w", rec.kind, rec.fields[0], ErrSyntax)
	}
	rest := rec.fields[1:]

	d := kernelbp.NewVertexData(rec.kind == TypeObservedNode)
	width := 3
	if d.Observed {
		width = 2
	}
	for len(rest) > 0 {
		// The neighbor list ends at the first non-numeric token.
		a, ok := parseID(rest[0])
		if !ok {
			l.logger.Warn("trailing tokens ignored", slog.Int("line", rec.line), slog.Any("tokens", rest))
			break
		}
		if len(rest) < width {
			return fmt.Errorf("vertex %d: incomplete entry %v: %w", id, rest, ErrSyntax)
		}
		if d.Observed {
			m, err := l.loadMatrix(rest[1], baseDir)
			if err != nil {
				return fmt.Errorf("vertex %d neighbor %d: %w", id, a, err)
			}
			v, err := matrix.AsVector(m)
			if err != nil {
				return fmt.Errorf("vertex %d neighbor %d: %w", id, a, err)
			}
			d.ObsKernels[a] = v
		} else {
			b, ok := parseID(rest[1])
			if !ok {
				return fmt.Errorf("vertex %d: kernel pair (%s,%s): %w", id, rest[0], rest[1], ErrSyntax)
			}
			m, err := l.loadMatrix(rest[2], baseDir)
			if err != nil {
				return fmt.Errorf("vertex %d kernel (%d,%d): %w", id, a, b, err)
			}
			d.Kernels[kernelbp.Pair{Target: a, Source: b}] = m
		}
		rest = rest[width:]
	}

	return g.AddVertex(id, d)
}

func (l *Loader) addEdge(g *kernelbp.Graph, rec record, baseDir string) error {
	if len(rec.fields) < 2 {
		return fmt.Errorf("%s: missing endpoints: %w", rec.kind, ErrSyntax)
	}
	src, ok1 := parseID(rec.fields[0])
	tgt, ok2 := parseID(rec.fields[1])
	if !ok1 || !ok2 {
		return fmt.Errorf("%s: endpoints %q %q: %w", rec.kind, rec.fields[0], rec.fields[1], ErrSyntax)
	}
	rest := rec.fields[2:]
	if len(rest)%2 != 0 {
		l.logger.Warn("dangling solution name ignored", slog.Int("line", rec.line), slog.String("name", rest[len(rest)-1]))
		rest = rest[:len(rest)-1]
	}

	solutions := make(map[string]*matrix.Dense, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		m, err := l.loadMatrix(rest[i+1], baseDir)
		if err != nil {
			return fmt.Errorf("edge %d->%d %s: %w", src, tgt, rest[i], err)
		}
		solutions[rest[i]] = m
	}
	ed := kernelbp.NewEdgeData(solutions)

	if _, err := g.AddEdge(src, tgt, ed); err != nil {
		return err
	}
	l.warnTargetKind(g, rec, tgt)

	return nil
}

// warnTargetKind logs edge records whose type disagrees with the target vertex.
func (l *Loader) warnTargetKind(g *kernelbp.Graph, rec record, tgt core.VertexID) {
	v, err := g.Vertex(tgt)
	if err != nil {
		return
	}
	if v.Data.Observed != (rec.kind == TypeEdgeObservedTarget) {
		l.logger.Warn("edge type does not match target vertex",
			slog.Int("line", rec.line),
			slog.String("type", rec.kind),
			slog.Bool("target_observed", v.Data.Observed),
		)
	}
}

// loadMatrix loads (or reuses) the matrix at name resolved against baseDir.
func (l *Loader) loadMatrix(name, baseDir string) (*matrix.Dense, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, name)
	}
	if m, ok := l.cache[path]; ok {
		return m, nil
	}
	m, err := matrix.LoadText(path)
	if err != nil {
		return nil, err
	}
	l.cache[path] = m

	return m, nil
}
