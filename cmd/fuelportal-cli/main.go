package main

import (
	"context"
	"myfuelportal-backend/cmd/fuelportal-cli/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
