package main

import "github.com/BharatiPatra/fi-dashboard/internal/cli"

func main() {
	cli.Execute()
}
