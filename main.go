/*
Copyright © 2024 Jeff Berkowitz

*/
package main

import "github.com/gmofishsauce/fontkit/cmd"

func main() {
	cmd.Execute()
}
