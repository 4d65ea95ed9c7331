package main

import (
	"context"
	"time"

	"eemon-go/bus"
	"eemon-go/instrument"
	"eemon-go/platform"
	"eemon-go/services/config"
)

// board selects the embedded profile; override with -ldflags "-X main.board=...".
var board = "eemon42"

func fail(stage string, err error) {
	for {
		println("Error: [main]", stage+":", err.Error())
		time.Sleep(5 * time.Second)
	}
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("Info: [main] boot", board)

	ctx := context.WithValue(context.Background(), config.CtxBoardKey, board)
	b := bus.NewBus(8)
	cfg, err := config.NewConfigService().Start(ctx, b.NewConnection("config"))
	if err != nil {
		fail("config", err)
	}

	hw, err := platform.Open(instrument.Params(cfg))
	if err != nil {
		fail("platform", err)
	}
	in, err := instrument.New(hw, cfg, instrument.WithBus(b))
	if err != nil {
		fail("instrument", err)
	}
	if err := in.Init(); err != nil {
		fail("init", err)
	}
	for _, i := range in.FailedIndexes() {
		println("Warn: [main] channel", i, "offline")
	}
	if err := in.Run(ctx); err != nil {
		fail("run", err)
	}
}
