// Command schemagate applies database change sets from a changelog.
//
// Usage:
//
//	schemagate run <username> <password> <config>
//	schemagate verify <username> <password> <config>
//	schemagate status <username> <password> <config>
//
// This binary resolves the config and changelog on the filesystem only. A host
// program that ships them inside its binary embeds them and passes the
// embed.FS to cli.Execute, which falls back to it for paths missing on disk:
//
//	//go:embed conf
//	var resources embed.FS
//
//	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr, resources))
package main

import (
	"os"

	"github.com/aqasim81/schemagate/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
