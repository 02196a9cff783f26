// Command alarmee-server is described by its cobra root command.
package main

import "github.com/oshokin/alarmee/cmd/alarmee-server/cmd"

func main() {
	cmd.Execute()
}
