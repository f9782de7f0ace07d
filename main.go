package main

import "github.com/springcard/sscp-host/cmd"

func main() {
	cmd.Execute()
}
