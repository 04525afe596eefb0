package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"

	"github.com/zucenko/hanzo/config"
	"github.com/zucenko/hanzo/server"
	"github.com/zucenko/hanzo/store"
)

type Server struct {
	router     *way.Router
	GameServer *server.GameServer
}

func env(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := flag.String("port", env("PORT", ""), "http port, $PORT")
	tcpAddr := flag.String("tcp", env("HANZO_TCP", ""), "raw tcp listen address, off when empty")
	cfgPath := flag.String("config", config.DefaultPath, "config file")
	mapPath := flag.String("map", env("HANZO_MAP", ""), "map file, built-in map when empty")
	dsn := flag.String("dsn", env("HANZO_DB_DSN", ""), "postgres dsn for match history, in memory when empty")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	if *port == "" {
		*port = "8080"
		log.Printf("Defaulting to port %s", *port)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalln(err)
	}

	factory := server.DefaultGames
	if *mapPath != "" {
		if factory, err = server.FileGames(*mapPath); err != nil {
			log.Fatalln(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results store.Store = store.NewMemory()
	if *dsn != "" {
		db, err := store.OpenPostgres(*dsn)
		if err != nil {
			log.Fatalln(err)
		}
		if results, err = store.NewGorm(ctx, db); err != nil {
			log.Fatalln(err)
		}
		log.Info("match history in postgres")
	}

	Server := Server{
		GameServer: server.NewGameServer(":"+*port, cfg, factory, results),
	}
	go Server.GameServer.Loop(ctx)
	Server.routes()

	if *tcpAddr != "" {
		ln, err := net.Listen("tcp", *tcpAddr)
		if err != nil {
			log.Fatalln(err)
		}
		go func() {
			<-ctx.Done()
			ln.Close()
		}()
		go func() {
			if err := Server.GameServer.ServeTCP(ln); err != nil {
				log.Errorf("tcp %v", err)
			}
		}()
	}

	httpServer := &http.Server{Addr: ":" + *port, Handler: Server.router}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()
	log.Printf("Listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalln(err)
	}
}
