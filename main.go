package main

import "koala-diff/cmd"

func main() {
	cmd.Execute()
}
