package main

import (
	"github.com/kcaldas/pdfgenie/cmd/cli"
)

func main() {
	cli.Execute()
}
