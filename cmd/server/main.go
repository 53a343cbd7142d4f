package main

import (
	"github.com/OFFIS-RIT/curator/internal/server"
	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/logger"
	"github.com/OFFIS-RIT/curator/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	server.Init()
}
