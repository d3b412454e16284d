package main

import "github.com/ridoystarlord/dupfix/cmd"

func main() {
	cmd.Execute()
}
