package main

import (
	"os"

	"go-payroll/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Stderr))
}
