package main

import "github.com/example/meal-scheduler/internal/interfaces/cli"

func main() {
	cli.Execute()
}
