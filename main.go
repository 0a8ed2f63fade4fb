package main

import "github.com/naka-gawa/github-feedback/cmd"

func main() {
	cmd.Execute()
}
