package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"swipebite_server/config"
	"swipebite_server/models"
	"swipebite_server/services"
	"swipebite_server/utils"
)

var (
	codeCount  int
	tokenName  string
	tokenEmail string
	tokenTTL   time.Duration
)

func init() {
	codeCmd.Flags().IntVarP(&codeCount, "count", "n", 1, "number of codes to draw")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name (required)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, defaults to auth.token_ttl")
	tokenCmd.MarkFlagRequired("name")
	tokenCmd.MarkFlagRequired("email")
}

// codeCmd prints sample session codes
var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Draw sample session codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := services.NewCodeGenerator()
		for range codeCount {
			fmt.Fprintln(cmd.OutOrStdout(), gen.Generate())
		}
		return nil
	},
}

// tokenCmd mints a bearer token for local testing
var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Mint a signed bearer token for local testing",
	Long: `Mint a signed bearer token using auth.jwt_secret.

Examples:
  swipebite token --name Alice --email alice@example.com
  swipebite token u-123 --name Bob --email bob@example.com --ttl 1h`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		user := models.User{ID: uuid.NewString(), Name: tokenName, Email: tokenEmail}
		if len(args) == 1 {
			user.ID = args[0]
		}
		ttl := tokenTTL
		if ttl == 0 {
			ttl = cfg.Auth.TokenTTL
		}

		token, err := utils.GenerateJWT([]byte(cfg.Auth.JWTSecret), user, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
