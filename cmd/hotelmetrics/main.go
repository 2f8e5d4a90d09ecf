package main

import "hotel-metrics/internal/cli"

func main() {
	cli.Execute()
}
