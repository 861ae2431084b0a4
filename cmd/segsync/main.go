package main

import "github.com/ozanturksever/segsync/cmd/segsync/cmd"

func main() {
	cmd.Execute()
}
