package main

import "github.com/theirongolddev/financas/cmd"

func main() {
	cmd.Execute()
}
