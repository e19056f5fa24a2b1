package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/gradebook/api"
)

func makeLoginCommand() *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			res, err := client.Login(email, password)
			if err != nil {
				return err
			}
			log.Info("Logged in", zap.String("name", res.User.Name), zap.String("role", res.User.Role))
			fmt.Println(res.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Staff e-mail")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	check(cmd.MarkFlagRequired("email"))
	check(cmd.MarkFlagRequired("password"))

	return cmd
}

func makeRegisterCommand() *cobra.Command {
	req := api.RegisterRequest{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a staff account and print its session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			res, err := client.Register(&req)
			if err != nil {
				return err
			}
			log.Info("Registered", zap.Uint("id", res.User.ID), zap.String("role", res.User.Role))
			fmt.Println(res.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "E-mail")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	cmd.Flags().StringVar(&req.Role, "role", "teacher", "Role: teacher or admin")
	check(cmd.MarkFlagRequired("email"))
	check(cmd.MarkFlagRequired("password"))

	return cmd
}
