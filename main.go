package main

import "github.com/deploymenttheory/go-bootctl/cmd"

func main() {
	cmd.Execute()
}
