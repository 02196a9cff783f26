// Command alarmee is described by its cobra root command.
package main

import "github.com/oshokin/alarmee/cmd/alarmee/cmd"

func main() {
	cmd.Execute()
}
