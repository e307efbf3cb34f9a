package main

import "ideagraph/semnet/cmd"

func main() {
	cmd.Execute()
}
