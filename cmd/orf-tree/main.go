package main

import "github.com/alejandrogzi/isopipe/cmd/orf-tree/cmd"

func main() {
	cmd.Run()
}
