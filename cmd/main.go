package main

import (
	"fmt"
	"os"

	"github.com/yungbote/lookbook-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	addr := ":" + a.Cfg.Port
	a.Log.Info("server listening", "addr", addr)
	if err := a.Run(addr); err != nil {
		a.Log.Error("server failed", "error", err.Error())
		os.Exit(1)
	}
}
