package main

import (
	"github.com/mercatolabs/order-orchestrator/internal/app"
	"github.com/mercatolabs/order-orchestrator/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
