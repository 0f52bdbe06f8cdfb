package main

import (
	"github.com/maxgio92/stackflow/pkg/cmd"
)

func main() {
	cmd.Execute()
}
