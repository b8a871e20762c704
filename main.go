// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"os/user"

	"axc/repl"
)

func main() {
	currentUser, err := user.Current()
	if err != nil {
		fmt.Printf("Error getting current user: %v\n", err)
		return
	}

	fmt.Printf("Welcome to the axc REPL, %s!\n", currentUser.Username)
	fmt.Println("Paste a graph, then an empty line to lower it.")
	repl.Start(os.Stdin, os.Stdout)
}
