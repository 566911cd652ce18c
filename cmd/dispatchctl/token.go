package main

import (
	"fmt"
	"io"

	"jobdispatch-backend/middelware"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils"
	"jobdispatch-backend/utils/logger"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token --user-id ID --role ROLE",
	Short: "Sign a session token with the server's JWT secret",
	Long: "dispatchctl token --user-id ID --role admin|dispatcher|technician [--technician-id ID]\n\n" +
		"Reads jwt_secret from config.json or JWT_SECRET, like the server. Login belongs to\n" +
		"the auth service; this is for local operation and scripting.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := utils.GetConfig()
		if err != nil {
			return err
		}
		if expires, _ := cmd.Flags().GetDuration("expires"); expires > 0 {
			cfg.JWTExpiresIn = expires
		}

		identity, err := identityFromFlags(cmd)
		if err != nil {
			return err
		}

		token, err := signToken(cfg, identity)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	flags := tokenCmd.Flags()
	flags.String("user-id", "", "user id (required)")
	flags.String("role", "", "admin, dispatcher or technician (required)")
	flags.String("technician-id", "", "technician record id, required for technicians")
	flags.String("email", "", "email claim")
	flags.String("name", "", "display name claim")
	flags.Duration("expires", 0, "token lifetime, default jwt_expires_in")
	tokenCmd.MarkFlagRequired("user-id")
	tokenCmd.MarkFlagRequired("role")
}

func identityFromFlags(cmd *cobra.Command) (middelware.SessionIdentity, error) {
	userID, _ := cmd.Flags().GetString("user-id")
	role, _ := cmd.Flags().GetString("role")
	technicianID, _ := cmd.Flags().GetString("technician-id")
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")

	identity := middelware.SessionIdentity{
		UserID:       userID,
		Email:        email,
		Name:         name,
		Role:         models.UserRole(role),
		TechnicianID: technicianID,
	}
	if !identity.Role.IsValid() {
		return identity, fmt.Errorf("unknown role %q", role)
	}
	if identity.Role == models.UserRoleTechnician && technicianID == "" {
		return identity, fmt.Errorf("--technician-id is required for technician tokens")
	}
	return identity, nil
}

func signToken(cfg *models.Config, identity middelware.SessionIdentity) (string, error) {
	log := logger.NewLoggerWithOutput("error", "text", io.Discard)
	return middelware.NewJWTManager(cfg, log).GenerateToken(identity)
}
