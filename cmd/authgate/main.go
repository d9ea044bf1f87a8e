package main

import "github.com/dgellow/authgate/cmd/authgate/cmd"

func main() {
	cmd.Execute()
}
