package main

import "github.com/MikeSquared-Agency/tune/internal/cli"

func main() {
	cli.Execute()
}
