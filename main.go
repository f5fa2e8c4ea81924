package main

import "github.com/kozaktomas/photo-pages/cmd"

func main() {
	cmd.Execute()
}
