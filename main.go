package main

import "github.com/waterrun/treepp/cmd"

func main() {
	cmd.Execute()
}
