package main

import "github.com/Laisky/search-mcp/cmd"

func main() {
	cmd.Execute()
}
