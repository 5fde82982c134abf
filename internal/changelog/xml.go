package changelog

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"strings"
)

// xmlChangelog covers the subset of the Liquibase XML format made of raw SQL:
//
//	<databaseChangeLog>
//	  <changeSet id="1" author="alice" context="dev">
//	    <sql>CREATE TABLE users (id INT);</sql>
//	    <sqlFile path="sql/002.sql"/>
//	  </changeSet>
//	</databaseChangeLog>
//
// Namespaces are ignored. Any other element, such as <include> or
// <createTable>, fails the load rather than being skipped. <comment> and
// <rollback> are accepted and ignored.
type xmlChangelog struct {
	XMLName    xml.Name       `xml:"databaseChangeLog"`
	ChangeSets []xmlChangeSet `xml:"changeSet"`
	Unknown    []xmlElement   `xml:",any"`
}

type xmlChangeSet struct {
	ID       string       `xml:"id,attr"`
	Author   string       `xml:"author,attr"`
	Context  string       `xml:"context,attr"`
	Contexts string       `xml:"contexts,attr"`
	Comment  string       `xml:"comment"`
	Rollback []xmlElement `xml:"rollback"`
	SQL      []string     `xml:"sql"`
	SQLFiles []xmlSQLFile `xml:"sqlFile"`
	Unknown  []xmlElement `xml:",any"`
}

// xmlElement captures only the name of an element.
type xmlElement struct {
	XMLName xml.Name
}

type xmlSQLFile struct {
	Path string `xml:"path,attr"`
}

func loadXML(fsys fs.FS, name string) ([]rawChangeSet, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading changelog %s: %w", name, err)
	}

	var doc xmlChangelog
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, name, err)
	}

	if len(doc.Unknown) > 0 {
		return nil, fmt.Errorf("%w %s: unsupported element <%s> in databaseChangeLog",
			ErrParse, name, doc.Unknown[0].XMLName.Local)
	}

	raws := make([]rawChangeSet, 0, len(doc.ChangeSets))

	for _, cs := range doc.ChangeSets {
		if len(cs.Unknown) > 0 {
			return nil, fmt.Errorf("%w %s: unsupported element <%s> in change set %s::%s",
				ErrParse, name, cs.Unknown[0].XMLName.Local, cs.ID, cs.Author)
		}

		parts := make([]string, 0, len(cs.SQL)+len(cs.SQLFiles))

		for _, s := range cs.SQL {
			parts = append(parts, terminate(s))
		}

		for _, f := range cs.SQLFiles {
			body, err := readRelative(fsys, name, f.Path)
			if err != nil {
				return nil, err
			}

			parts = append(parts, terminate(body))
		}

		context := cs.Context
		if context == "" {
			context = cs.Contexts
		}

		raws = append(raws, rawChangeSet{
			id:      cs.ID,
			author:  cs.Author,
			context: context,
			body:    strings.Join(parts, "\n"),
		})
	}

	return raws, nil
}

// terminate makes sure consecutive SQL blocks stay separate statements once joined.
func terminate(sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" || strings.HasSuffix(sql, ";") {
		return sql
	}

	return sql + ";"
}
