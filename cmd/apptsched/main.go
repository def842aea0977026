package main

import "github.com/dmehra2102/prod-golang-projects/apptsched/internal/cli"

func main() {
	cli.Execute()
}
