package main

import "github.com/oshokin/linux-deps/cmd/deps-checker/cmd"

func main() {
	cmd.Execute()
}
