package main

import "github.com/oshokin/air-alarm/cmd/air-alarm/cmd"

func main() {
	cmd.Execute()
}
