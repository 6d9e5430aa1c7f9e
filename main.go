package main

import (
	cmd "github.com/connexus-ai/knowledge-agent/cmd/knowledge-agent"
)

func main() {
	cmd.Execute()
}
