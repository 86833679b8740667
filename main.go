package main

import "github.com/KaramelBytes/binliquidator-cli/cmd"

func main() {
	cmd.Execute()
}
