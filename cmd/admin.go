package cmd

import (
	"fmt"

	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/kendall-kelly/delivery-admin-api/services"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage dashboard admins",
}

var (
	adminEmail string
	adminName  string
	adminRole  string
)

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Pre-register an admin by e-mail; the Auth0 account is linked on first login",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		admin, err := services.NewAdminService(db, nil).Create(cmd.Context(), services.AdminInput{
			Email:    adminEmail,
			FullName: adminName,
			Role:     adminRole,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", admin.Role, admin.Email, admin.ID)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin e-mail (must match the Auth0 account)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "full name")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", models.RoleSubAdmin, "super_admin or sub_admin")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("name")
	adminCmd.AddCommand(adminCreateCmd)
}
