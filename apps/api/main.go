package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
	dummydb "github.com/trezcool/ratiba/storage/database/dummy"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug)

	if err := run(logger); err != nil {
		logger.Fatal("running server", err)
	}
}

func run(logger core.Logger) error {
	// set up DB
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return errors.Wrap(err, "migrating database")
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	dir, err := openDirectory()
	if err != nil {
		return errors.Wrap(err, "opening school directory")
	}
	scheduleSvc := schedule.NewService(sqlxrepos.NewEntryRepository(db), dir, mailSvc)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:     core.Conf.Server.Addr,
		ScheduleSvc: scheduleSvc,
		Logger:      logger,
		Shutdown:    shutdown,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + core.Conf.Server.Addr)
		serverErrors <- app.Start()
	}()

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")
	case sig := <-shutdown:
		logger.Info("shutdown started", sig)

		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", err)
			return errors.Wrap(app.Stop(context.Background()), "forcing shutdown")
		}
	}
	return nil
}

// openDirectory wires the school master-data lookup. Master-data lives in the
// registry service; until its client lands we read from the local seed store.
func openDirectory() (school.Directory, error) {
	db, err := dummydb.Open()
	if err != nil {
		return nil, err
	}
	return dummydb.NewDirectory(db), nil
}
