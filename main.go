package main

import "github.com/trackifyhq/trackify/cmd"

func main() {
	cmd.Execute()
}
