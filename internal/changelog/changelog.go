package changelog

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Changelog is the ordered declaration of every change set for a system.
type Changelog struct {
	Ref        string
	ChangeSets []ChangeSet
}

// Source resolves a changelog reference into its change sets.
type Source interface {
	Load(ref string) (*Changelog, error)
}

// rawChangeSet is the format-independent shape every parser produces.
type rawChangeSet struct {
	id      string
	author  string
	context string
	body    string
}

// Option configures a Loader.
type Option func(*Loader)

// WithResources sets a filesystem consulted when a reference does not exist
// on disk, typically an embed.FS compiled into the host binary.
func WithResources(fsys fs.FS) Option {
	return func(l *Loader) { l.resources = fsys }
}

// WithPostgresParser validates every change set with the Postgres parser and
// splits it into individual statements. Unless allowNonTransactional is set,
// statements that cannot run inside a transaction block are rejected.
func WithPostgresParser(allowNonTransactional bool) Option {
	return func(l *Loader) {
		l.splitFn = func(sql string) ([]string, error) {
			return splitPostgres(sql, allowNonTransactional)
		}
	}
}

// Loader reads YAML, XML and SQL-directory changelogs.
type Loader struct {
	resources fs.FS
	splitFn   func(string) ([]string, error)
}

// NewLoader creates a Loader. Without WithPostgresParser each change set body
// is executed as a single batch.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{splitFn: wholeBody}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load resolves ref and parses it according to its shape: a directory of
// migration files, or a .yml/.yaml/.xml document.
func (l *Loader) Load(ref string) (*Changelog, error) {
	fsys, name, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}

	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChangelogNotFound, ref, err)
	}

	var raws []rawChangeSet

	switch ext := strings.ToLower(path.Ext(name)); {
	case info.IsDir():
		raws, err = loadDir(fsys, name)
	case ext == ".yml" || ext == ".yaml":
		raws, err = loadYAML(fsys, name)
	case ext == ".xml":
		raws, err = loadXML(fsys, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ref)
	}

	if err != nil {
		return nil, err
	}

	return l.build(ref, raws)
}

// resolve maps ref onto a filesystem: the OS filesystem when the path exists,
// otherwise the embedded resources.
func (l *Loader) resolve(ref string) (fs.FS, string, error) {
	if info, err := os.Stat(ref); err == nil {
		if info.IsDir() {
			return os.DirFS(ref), ".", nil
		}

		return os.DirFS(filepath.Dir(ref)), filepath.Base(ref), nil
	}

	if l.resources != nil {
		name := path.Clean(strings.TrimPrefix(filepath.ToSlash(ref), "/"))
		if _, err := fs.Stat(l.resources, name); err == nil {
			return l.resources, name, nil
		}
	}

	return nil, "", fmt.Errorf("%w: %s", ErrChangelogNotFound, ref)
}

func (l *Loader) build(ref string, raws []rawChangeSet) (*Changelog, error) {
	cl := &Changelog{Ref: ref, ChangeSets: make([]ChangeSet, 0, len(raws))}
	seen := make(map[ID]bool, len(raws))
	idPath := IdentityPath(ref)

	for i, raw := range raws {
		if raw.id == "" || raw.author == "" {
			return nil, fmt.Errorf("%w: change set #%d in %s needs both id and author", ErrInvalidChangeSet, i+1, ref)
		}

		id := ID{ID: raw.id, Author: raw.author, Path: idPath}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChangeSet, id)
		}

		seen[id] = true

		body := strings.TrimSpace(raw.body)
		if body == "" {
			return nil, fmt.Errorf("%w: %s has no SQL", ErrInvalidChangeSet, id)
		}

		stmts, err := l.splitFn(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidChangeSet, id, err)
		}

		if len(stmts) == 0 {
			return nil, fmt.Errorf("%w: %s has no statements", ErrInvalidChangeSet, id)
		}

		cl.ChangeSets = append(cl.ChangeSets, NewSQLChangeSet(id, i, ParseContexts(raw.context), body, stmts))
	}

	return cl, nil
}

// IdentityPath is the form of ref recorded in change set identities. Spellings
// of the same relative path, such as "./db/changelog.yml" and
// "db/changelog.yml", map to one value.
func IdentityPath(ref string) string {
	return path.Clean(filepath.ToSlash(ref))
}

func wholeBody(sql string) ([]string, error) {
	return []string{sql}, nil
}

// readRelative reads a file referenced from inside a changelog document,
// resolving it against the document's directory.
func readRelative(fsys fs.FS, docName, ref string) (string, error) {
	p := path.Clean(path.Join(path.Dir(docName), filepath.ToSlash(ref)))

	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return "", fmt.Errorf("reading sql file %s: %w", p, err)
	}

	return string(data), nil
}
