package main

import "fitsync/cmd/fitsync/cmd"

func main() {
	cmd.Execute()
}
