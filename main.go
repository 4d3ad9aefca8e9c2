package main

import "github.com/andresmejia3/trackpoint/cmd"

func main() {
	cmd.Execute()
}
