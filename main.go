package main

import "github.com/audiolibrelab/recorderctl/cmd"

func main() {
	cmd.Execute()
}
