package main

import (
	"whimsy/cmd/handlers"
)

func main() {
	handlers.Execute()
}
