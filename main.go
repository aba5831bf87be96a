package main

import (
	"github.com/veddb/veddb-go/cmd"
)

func main() {
	cmd.Execute()
}
