package main

import "plcvisualizer/cli"

func main() {
	cli.Execute()
}
