package main

import "github.com/frahmantamala/expense-tickets/cmd"

func main() {
	cmd.Execute()
}
