package main

import (
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	appfs "github.com/trezcool/gradebook/fs"
)

func main() {
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	c := newContainer()
	must(c.Invoke(func(cli *commandLine, db *sqlx.DB, mailSvc core.EmailService, logger core.Logger) {
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		if s, ok := logger.(interface{ Sync() }); ok {
			defer s.Sync()
		}

		core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, false, logger)

		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				cli.errorf("\nerror: %s\n", describeError(err))
			}
			exitCode = 1
		}
		if w, ok := mailSvc.(emailWaiter); ok {
			w.Wait()
		}
	}))
}
