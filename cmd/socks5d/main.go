// Command socks5d is a SOCKS5 proxy daemon: <socks5d> <port>.
package main

import (
	"os"

	"socksd/internal/daemon"
	"socksd/internal/socks"
)

func main() {
	os.Exit(daemon.Main(socks.V5, "socks5d", os.Args[1:]))
}
