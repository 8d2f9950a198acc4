package main

import "couples-backend/cmd"

func main() {
	cmd.Execute()
}
