package main

import (
	"context"

	"github.com/berkinory/Nobetcim/cmd/nobetci-cli/commands"
	"github.com/berkinory/Nobetcim/lib/telemetry"
)

func main() {
	telemetry.InitSlog(true)
	telemetry.SetupFromEnv(context.Background(), "nobetci-cli")
	commands.ExecuteContext(context.Background())
}
