package commands

import (
	"context"

	"parley/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type cli struct {
	env        Env
	app        *app
	configPath string
	logLevel   string
}

// Execute runs the command line given by args.
func Execute(ctx context.Context, env Env, args []string) error {
	env.setDefaults()
	c := &cli{env: env}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetIn(env.In)
	root.SetOut(env.Out)
	root.SetErr(env.Out)
	defer func() {
		if c.app != nil {
			c.app.close()
		}
	}()
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parley",
		Short:         "Terminal client for the chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
			zerolog.SetGlobalLevel(cfg.Level())

			c.app, err = newApp(cmd.Context(), cfg, c.env)
			return err
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file path (default $PARLEY_CONFIG)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (default $PARLEY_LOG_LEVEL or info)")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.profileCmd(),
		c.contactsCmd(),
		c.groupCmd(),
		c.chatCmd(),
		c.sendCmd(),
		c.uploadCmd(),
	)
	return root
}
