package cmd

import (
	"skillforge_backend/internal/app"
	"skillforge_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
}

func runServe(cmd *cobra.Command) error {
	cfg, dir, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Lookup("migrate") != nil {
		cfg.ForceMigrate, _ = cmd.Flags().GetBool("migrate")
	}

	application, err := app.NewApp(cfg, dir)
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	return application.Run()
}
