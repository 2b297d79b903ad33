package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// NewCreateUserCmd creates an account of any role, admins included.
func NewCreateUserCmd(configPath *string) *cobra.Command {
	var in app.RegisterInput
	var role string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account directly in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("create-user needs postgres; an in-memory account would vanish on exit")
			}
			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			in.Role = domain.Role(role)
			user, err := app.NewUserService(st.users, st.quizzes, nil).CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			log.Info().Str("id", user.ID).Str("email", user.Email).Str("role", string(user.Role)).Msg("user created")
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "student, teacher or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
