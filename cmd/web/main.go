package main

import (
	"log/slog"
	"os"

	"mazecoord/internal/server"
)

func main() {
	if err := server.Run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
