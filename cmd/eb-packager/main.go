package main

import "github.com/oshokin/eb-packager/cmd/eb-packager/cmd"

func main() {
	cmd.Execute()
}
