package main

import "github.com/KitotsuMolina/Kitsune-RenderCore/cmd/rendercore/commands"

func main() {
	commands.Execute()
}
