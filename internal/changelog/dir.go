package changelog

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
)

// dirAuthor is recorded as the author of change sets read from a directory,
// where file names carry no author.
const dirAuthor = "schemagate"

// filenamePattern matches migration files in two formats:
//
//	V{version}_{name}.up.sql   (e.g., V001_create_users.up.sql)
//	{timestamp}_{name}.up.sql  (e.g., 20240101120000_create_users.up.sql)
//
// .down.sql files are accepted and ignored; migrations are never reversed.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by loadDir
	`^(?:V(\d+)|(\d{14}))_(.+)\.(up|down)\.sql$`,
)

type migrationFile struct {
	version string
	name    string
	file    string
}

// loadDir scans a directory for .up.sql files and returns them ordered by
// version. Files that do not match the naming pattern are skipped.
func loadDir(fsys fs.FS, dir string) ([]rawChangeSet, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	files, err := scanEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}

	raws := make([]rawChangeSet, 0, len(files))

	for _, mf := range files {
		data, err := fs.ReadFile(fsys, path.Join(dir, mf.file))
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", mf.file, err)
		}

		raws = append(raws, rawChangeSet{
			id:     mf.version + "_" + mf.name,
			author: dirAuthor,
			body:   string(data),
		})
	}

	return raws, nil
}

// scanEntries picks the .up.sql files out of a directory listing, sorted by
// numeric version, so V2 comes before V10. Two files resolving to the same
// version are rejected.
func scanEntries(entries []fs.DirEntry) ([]migrationFile, error) {
	var files []migrationFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil || matches[4] != "up" {
			continue
		}

		version := matches[1] // V-prefixed version
		if version == "" {
			version = matches[2] // timestamp version
		}

		files = append(files, migrationFile{version: version, name: matches[3], file: entry.Name()})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return compareVersions(files[i].version, files[j].version) < 0
	})

	for i := 1; i < len(files); i++ {
		if compareVersions(files[i-1].version, files[i].version) == 0 {
			return nil, fmt.Errorf("%w: %s and %s share version %s",
				ErrDuplicateChangeSet, files[i-1].file, files[i].file, files[i].version)
		}
	}

	return files, nil
}

// compareVersions orders digit strings by numeric value without parsing them,
// so versions of any length compare correctly.
func compareVersions(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}

		return 1
	}

	return strings.Compare(a, b)
}
