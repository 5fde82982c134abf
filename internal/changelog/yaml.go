package changelog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// yamlChangelog is the raw YAML document:
//
//	changesets:
//	  - id: "1"
//	    author: alice
//	    context: "dev, !prod"
//	    sql: CREATE TABLE users (id INT);
//
// Unknown keys at any level fail the load.
type yamlChangelog struct {
	ChangeSets []yamlChangeSet `yaml:"changesets"`
}

type yamlChangeSet struct {
	ID      string `yaml:"id"`
	Author  string `yaml:"author"`
	Context string `yaml:"context"`
	Comment string `yaml:"comment"`
	SQL     string `yaml:"sql"`
	SQLFile string `yaml:"sqlFile"`
}

func loadYAML(fsys fs.FS, name string) ([]rawChangeSet, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading changelog %s: %w", name, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlChangelog
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, name, err)
	}

	raws := make([]rawChangeSet, 0, len(doc.ChangeSets))

	for _, cs := range doc.ChangeSets {
		body := cs.SQL

		if cs.SQLFile != "" {
			if body != "" {
				return nil, fmt.Errorf("%w: %s::%s sets both sql and sqlFile", ErrInvalidChangeSet, cs.ID, cs.Author)
			}

			if body, err = readRelative(fsys, name, cs.SQLFile); err != nil {
				return nil, err
			}
		}

		raws = append(raws, rawChangeSet{id: cs.ID, author: cs.Author, context: cs.Context, body: body})
	}

	return raws, nil
}
