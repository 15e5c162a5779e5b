package main

import "github.com/oshokin/air-alarm/cmd/air-alarm-ctl/cmd"

func main() {
	cmd.Execute()
}
