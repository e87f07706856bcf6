package main

import "github.com/ValentinKolb/txkv/cmd"

func main() {
	cmd.Execute()
}
