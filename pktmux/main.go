// Command pktmux runs the packet multiplexer simulation.
package main

import "github.com/sarchlab/pktmux/pktmux/cmd"

func main() {
	cmd.Execute()
}
