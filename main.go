package main

import (
	"os"

	"github.com/user/secscan/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
