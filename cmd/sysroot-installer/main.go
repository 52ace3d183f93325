package main

import "github.com/oshokin/linux-deps/cmd/sysroot-installer/cmd"

func main() {
	cmd.Execute()
}
