package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/client"
	"github.com/zucenko/hanzo/transport"
	"github.com/zucenko/hanzo/ui"
)

const victory = `
 __   __ ___   ___  _____  ___   ___ __   __
 \ \ / /|_ _| / __||_   _|/ _ \ | _ \\ \ / /
  \ V /  | | | (__   | | | (_) ||   / \ V /
   \_/  |___| \___|  |_|  \___/ |_|_\  |_|
`

const defeat = `
  ___   ___  ___  ___    _  _____
 |   \ | __|| __|| __|  /_\|_   _|
 | |) || _| | _| | _|  / _ \ | |
 |___/ |___||_|  |___|/_/ \_\|_|
`

func main() {
	address := flag.String("address", "localhost:8080", "server address, tcp://host:port for a raw socket")
	logPath := flag.String("log", "hanzo-client.log", "log file, the terminal belongs to the game")
	timeout := flag.Duration("timeout", 10*time.Second, "connect timeout")
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalln(err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	conn, err := transport.Dial(ctx, *address)
	cancel()
	if err != nil {
		log.Fatalln(err)
	}

	term, err := ui.NewTerminal(nil)
	if err != nil {
		conn.Close()
		log.Fatalln(err)
	}
	c, err := client.New(conn, ui.New(term))
	if err != nil {
		term.Reset()
		conn.Close()
		log.Fatalln(err)
	}
	runErr := c.Run()
	c.Close()
	if runErr != nil {
		log.Fatalln(runErr)
	}

	if c.Result() {
		fmt.Print(victory)
	} else {
		fmt.Print(defeat)
	}
}
