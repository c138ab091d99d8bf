package main

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"labcomm/auth"
	"labcomm/config"
	"labcomm/storage"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "labcomm",
		Short:         "Lab communication pages: external feeds, policy documents and posts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			setupLogging(cfg.Logging)
			log.Debugf("Loaded configuration: %s", cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file (default $LABCOMM_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cfg)
			},
		},
		newMigrateCmd(&cfg),
		newPermsCmd(&cfg),
	)

	return root
}

func newMigrateCmd(cfg **config.Config) *cobra.Command {
	var (
		revert bool
		to     int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := storage.Open(cmd.Context(), (*cfg).Database)
			if err != nil {
				return err
			}
			defer manager.Close()

			var toIndex *int
			if cmd.Flags().Changed("to") {
				toIndex = &to
			}
			if revert {
				err = manager.Revert(toIndex)
			} else {
				err = manager.MigrateTo(toIndex)
			}
			if err != nil {
				return err
			}
			log.Info("Migrations finished")
			return nil
		},
	}
	cmd.Flags().BoolVar(&revert, "revert", false, "revert instead of apply")
	cmd.Flags().IntVar(&to, "to", 0, "only apply or revert the first N migrations")

	return cmd
}

func newPermsCmd(cfg **config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Manage post permissions held in redis",
	}

	change := func(use string, short string, apply func(checker *auth.RedisChecker, ctx context.Context, user, perm string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " USER PERMISSION",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := *cfg
				if !knownPermission(args[1]) {
					return fmt.Errorf("unknown permission %q", args[1])
				}
				if c.Auth.Backend != "redis" {
					return fmt.Errorf("auth backend is %q, permissions are read from the configuration file", c.Auth.Backend)
				}
				client := redis.NewClient(&redis.Options{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB})
				defer client.Close()

				checker := auth.NewRedisChecker(client, c.Auth.KeyPrefix)
				if err := apply(checker, cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				log.WithFields(log.Fields{"user": args[0], "permission": args[1]}).Info("Permissions updated")
				return nil
			},
		}
	}

	cmd.AddCommand(
		change("grant", "Grant a permission to a user", (*auth.RedisChecker).Grant),
		change("revoke", "Revoke a permission from a user", (*auth.RedisChecker).Revoke),
	)
	return cmd
}

func knownPermission(perm string) bool {
	switch perm {
	case auth.PermCreatePost, auth.PermUpdatePost, auth.PermDeletePost:
		return true
	}
	return false
}
