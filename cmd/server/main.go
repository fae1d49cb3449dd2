package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/BharatiPatra/fi-dashboard/backend"
	"github.com/BharatiPatra/fi-dashboard/internal/config"
	"github.com/BharatiPatra/fi-dashboard/internal/logging"
	"github.com/BharatiPatra/fi-dashboard/internal/metrics"
	"github.com/BharatiPatra/fi-dashboard/server"
	"github.com/BharatiPatra/fi-dashboard/server/authflowrepo"
	"github.com/BharatiPatra/fi-dashboard/session"
	"github.com/BharatiPatra/fi-dashboard/session/sealedstore"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(os.Getenv("FIDASH_CONFIG"))
	if err != nil {
		return err
	}
	logging.Init(c.GetLogLevel(), c.GetEnv() == "DEV")
	displayAppname(c.GetAppName())

	handler, err := newServer(c)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(httpServer)
	}()

	select {
	case err := <-errs:
		if err != nil {
			_ = handler.Shutdown(context.Background())
			return err
		}
	case <-waitForStopSignal():
	}
	return shutdown(httpServer, handler)
}

func newServer(c config.Config) (*server.Server, error) {
	file, err := c.GetSessionFile()
	if err != nil {
		return nil, err
	}
	key, err := c.GetSessionKey()
	if err != nil {
		return nil, err
	}
	store := sealedstore.Open(file, key)
	log.Info().Str("file", store.Path()).Bool("sealed", key != nil).Msg("session store")

	reg := metrics.New()
	sessions := session.NewContext(store)
	client, err := backend.New(c.GetBackendURL(), sessions, backend.WithMetrics(reg.Backend))
	if err != nil {
		return nil, err
	}

	return server.New(c, sessions, client, authflowrepo.NewInMemoryRepo(),
		server.WithMetrics(reg),
		server.WithLogger(log.Logger),
	)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(httpServer *http.Server, handler *server.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := handler.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("login flow did not stop in time")
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
