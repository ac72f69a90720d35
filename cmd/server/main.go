package main

import "github.com/tuansdf/react-start-template/cmd/server/cmd"

func main() {
	cmd.Execute()
}
