// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/okzk/sdnotify"

	"github.com/unobot/uno/irc"
	"github.com/unobot/uno/irc/chatlog"
	"github.com/unobot/uno/irc/connection"
	"github.com/unobot/uno/irc/logger"
	"github.com/unobot/uno/irc/utils"
)

// set via linker flags, either by make or by goreleaser:
var commit = ""  // git hash
var version = "" // tagged version

// implements the `uno checkconf` command
func doCheckconf(config *irc.Config) {
	for _, err := range config.NetworkErrors {
		fmt.Println("invalid network:", err.Error())
	}
	fmt.Printf("%d networks ok\n", len(config.Networks))
	if len(config.NetworkErrors) != 0 {
		os.Exit(1)
	}
}

func run(config *irc.Config, logman *logger.Manager, quiet bool) {
	if !quiet {
		logman.Info("server", fmt.Sprintf("%s starting", irc.Ver))
	}
	if strings.Contains(irc.Ver, "unreleased") {
		logman.Warning("server", "You are currently running an unreleased beta version of uno that may be unstable.")
	}

	logs, err := chatlog.NewManager(config.Chatlog.Directory, config.Chatlog.IdleTimeout, logman)
	if err != nil {
		logman.Error("server", fmt.Sprintf("Could not open chat logs: %s", err.Error()))
		os.Exit(1)
	}
	defer logs.Close()

	manager := connection.NewManager(config.Manager(), logman)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.Run(ctx)
	logs.ScheduleExpiry(manager)

	sessions := irc.StartSessions(config, manager, logman, func(host string) irc.MessageLogger {
		return logs.Network(host)
	})
	sdnotify.Ready()

	exitSignals := make(chan os.Signal, len(utils.ExitSignals))
	signal.Notify(exitSignals, utils.ExitSignals...)
	tracebackSignals := make(chan os.Signal, 1)
	if len(utils.TracebackSignals) != 0 {
		signal.Notify(tracebackSignals, utils.TracebackSignals...)
	}

	for done := false; !done; {
		select {
		case <-exitSignals:
			done = true
		case <-tracebackSignals:
			pprof.Lookup("goroutine").WriteTo(os.Stderr, 2)
		case <-manager.Done():
			done = true
		}
	}

	sdnotify.Stopping()
	if !quiet {
		logman.Info("server", "shutting down")
	}
	irc.CloseSessions(sessions)
	manager.Shutdown()
	<-manager.Done()
}

func main() {
	irc.SetVersionString(version, commit)
	usage := `uno.
Usage:
	uno run [--conf <filename>] [--quiet]
	uno checkconf [--conf <filename>]
	uno -h | --help
	uno --version
Options:
	--conf <filename>  Configuration file to use [default: uno.yaml].
	--quiet            Don't show startup/shutdown lines.
	-h --help          Show this screen.
	--version          Show version.`

	arguments, _ := docopt.ParseArgs(usage, nil, irc.Ver)

	configfile := arguments["--conf"].(string)
	config, err := irc.LoadConfig(configfile)
	if err != nil {
		log.Fatal("Config file did not load successfully: ", err.Error())
	}

	if arguments["checkconf"].(bool) {
		doCheckconf(config)
		return
	}

	logman, err := logger.NewManager(config.Logging)
	if err != nil {
		log.Fatal("Logger did not load successfully:", err.Error())
	}
	defer logman.Close()

	if arguments["run"].(bool) {
		run(config, logman, arguments["--quiet"].(bool))
	}
}
