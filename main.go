package main

import "watermark_remover/cmd"

func main() {
	cmd.Execute()
}
