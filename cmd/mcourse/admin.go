package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mcourse/internal/model"
	"github.com/xxxsen/mcourse/internal/repo"
	"github.com/xxxsen/mcourse/internal/service"
)

func newAdminCmd(configPath, envFile *string) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "manage admin accounts",
	}

	var name, email, password string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sqlDB, err := bootstrap(*configPath, *envFile)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			accounts := service.NewAccountService(repo.NewAccountRepo(sqlDB), repo.NewSessionRepo(sqlDB), nil)
			summary, err := accounts.Register(cmd.Context(), service.RegisterInput{
				Kind:     model.AccountKindAdmin,
				Name:     name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			logutil.GetLogger(cmd.Context()).Info("admin created",
				zap.String("account_id", summary.ID),
				zap.String("email", summary.Email),
			)
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().StringVar(&email, "email", "", "login email")
	createCmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(createCmd)
	return adminCmd
}
