package main

import "github.com/governable/piiscan/cmd/piiscan"

func main() { piiscan.Execute() }
