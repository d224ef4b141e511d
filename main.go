package main

import "github.com/frahmantamala/shopbot-engine/cmd"

func main() {
	cmd.Execute()
}
