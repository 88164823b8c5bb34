package main

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	emailsvc "github.com/trezcool/gradebook/services/email"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

// emailWaiter is implemented by the email services sending in the background.
type emailWaiter interface {
	Wait()
}

// newLogger logs to stderr so that command output stays clean on stdout.
func newLogger(conf *core.Config) core.Logger {
	zconf := zap.NewProductionConfig()
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
	}
	zconf.OutputPaths = []string{"stderr"}
	zl, err := zconf.Build(zap.Fields(zap.String("app", "admin"), zap.String("env", conf.Env)))
	if err != nil {
		log.Fatal(errors.Wrap(err, "building logger").Error())
	}

	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, logger core.Logger) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newRepositories(db *sqlx.DB) course.Repositories {
	people := sqlxrepos.NewPersonRepository(db)
	return course.Repositories{
		Courses:  sqlxrepos.NewCourseRepository(db),
		People:   people,
		Graders:  people,
		Projects: sqlxrepos.NewProjectRepository(db),
		Teams:    sqlxrepos.NewTeamRepository(db),
	}
}

// newContainer returns the dig.Container of the admin CLI.
func newContainer() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newRepositories))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(core.NewValidator))
	must(c.Provide(course.NewService))
	must(c.Provide(newCommandLine))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
