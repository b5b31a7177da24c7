package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/utetezi/apps/api/echo"
	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/defense"
	"github.com/trezcool/utetezi/core/group"
	"github.com/trezcool/utetezi/core/topic"
	"github.com/trezcool/utetezi/core/user"
	emailsvc "github.com/trezcool/utetezi/services/email"
	logsvc "github.com/trezcool/utetezi/services/logger"
	"github.com/trezcool/utetezi/storage/database"
	sqlxrepos "github.com/trezcool/utetezi/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := setUpDB(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	policy := core.DefaultPolicy()
	usrRepo := sqlxrepos.NewUserRepository(db)
	topicRepo := sqlxrepos.NewTopicRepository(db)
	groupRepo := sqlxrepos.NewGroupRepository(db)
	defRepo := sqlxrepos.NewDefenseRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc)
	topicSvc := topic.NewService(topicRepo, policy)
	groupSvc := group.NewService(groupRepo, policy)
	defSvc := defense.NewService(db, defRepo, groupRepo, mailSvc, policy)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        core.Conf.Server.Addr,
		Logger:         logger,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		UserSvc:        usrSvc,
		TopicSvc:       topicSvc,
		GroupSvc:       groupSvc,
		DefenseSvc:     defSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Ping(db); err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
