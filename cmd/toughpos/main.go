package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/talkincode/toughpos/config"
	"github.com/talkincode/toughpos/internal/adminapi"
	"github.com/talkincode/toughpos/internal/app"
	"github.com/talkincode/toughpos/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	version  = "develop"
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	initDb   = flag.Bool("initdb", false, "run initdb, drops every table and reseeds")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		os.Exit(0)
	}
	if *h {
		flag.Usage()
		os.Exit(0)
	}

	// a missing .env is fine
	_ = godotenv.Load()

	cfg := config.LoadConfig(*conffile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initDb {
		application.InitDb()
		return
	}

	webserver.Init(application)
	adminapi.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(webserver.Start)
	g.Go(func() error {
		<-gctx.Done()
		zap.S().Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return webserver.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("server exited: %v", err)
	}
}
