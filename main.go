package main

import "github.com/shaharia-lab/mailjob/cmd"

func main() {
	cmd.Execute()
}
