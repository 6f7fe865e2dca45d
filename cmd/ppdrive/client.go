// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "manage clients of a running service",
	}
	cmd.AddCommand(newClientCreateCmd(), newClientRefreshCmd(), newClientListCmd())
	return cmd
}

func newClientCreateCmd() *cobra.Command {
	var (
		svcID     uint8
		name      string
		maxBucket float64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "create a new client and print its token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var max *float64
			if cmd.Flags().Changed("max-bucket") {
				max = &maxBucket
			}

			details, err := client().CreateClient(svcID, name, max)
			if err != nil {
				return err
			}
			fmt.Printf("id: %d\ntoken: %s\n", details.ID, details.Token)
			return nil
		},
	}
	cmd.Flags().Uint8VarP(&svcID, "service", "s", 0, "id of the service owning the client")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name of the client")
	cmd.Flags().Float64Var(&maxBucket, "max-bucket", 0, "total bucket size the client may allocate (MB)")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newClientRefreshCmd() *cobra.Command {
	var (
		svcID    uint8
		clientID string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "rotate a client's key and print the new token",
		RunE: func(*cobra.Command, []string) error {
			token, err := client().RefreshClientToken(svcID, clientID)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().Uint8VarP(&svcID, "service", "s", 0, "id of the service owning the client")
	cmd.Flags().StringVarP(&clientID, "client", "c", "", "id of the client to refresh")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func newClientListCmd() *cobra.Command {
	var svcID uint8

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list clients registered against a service",
		RunE: func(*cobra.Command, []string) error {
			clients, err := client().Clients(svcID)
			if err != nil {
				return err
			}
			if len(clients) == 0 {
				fmt.Println("no clients registered")
				return nil
			}

			fmt.Println(" id\t | name\t | max-bucket")
			for _, c := range clients {
				max := "unlimited"
				if c.MaxBucketSize != nil {
					max = fmt.Sprintf("%.1f MB", *c.MaxBucketSize)
				}
				fmt.Printf(" %d\t | %s\t | %s\n", c.ID, c.Name, max)
			}
			return nil
		},
	}
	cmd.Flags().Uint8VarP(&svcID, "service", "s", 0, "id of the service owning the clients")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}
