package main

import "patientsim/internal/cli"

func main() {
	cli.Execute()
}
