package main

import "mergectx/cmd"

func main() {
	cmd.Execute()
}
