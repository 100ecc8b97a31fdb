// Command socks4d is a SOCKS4 proxy daemon: <socks4d> <port>.
package main

import (
	"os"

	"socksd/internal/daemon"
	"socksd/internal/socks"
)

func main() {
	os.Exit(daemon.Main(socks.V4, "socks4d", os.Args[1:]))
}
