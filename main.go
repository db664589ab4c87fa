// ABOUTME: Entry point for the recon field report CLI and MCP server
// ABOUTME: Hands off to the cobra command tree in the cli package
package main

import (
	"os"

	"github.com/iTRMAutomation/mlc-village-recon-tool/cli"
)

const version = "0.2.0"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
