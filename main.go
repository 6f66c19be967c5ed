package main

import "pergaminos/cmd"

func main() {
	cmd.Execute()
}
