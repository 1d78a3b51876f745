package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tagdb/tagdb/pkg/acl"
)

var aclCmd = &cobra.Command{
	Use:   "acl",
	Short: "Manage ACL records",
}

var aclCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an ACL record",
	Long: `Create an ACL record granting a permission mask to a set of users.

Examples:
  # Grant read-only access to users 7 and 9
  tagdb acl create --perm r-- --users 7,9

  # Grant full access to user 12
  tagdb acl create --perm rwd --users 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mask, _ := cmd.Flags().GetString("perm")
		usersRaw, _ := cmd.Flags().GetString("users")

		perm, err := acl.Parse(mask)
		if err != nil {
			return err
		}
		users, err := parseUsers(usersRaw)
		if err != nil {
			return err
		}

		store, closeStore, err := openACLStore()
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := store.Create(context.Background(), acl.Record{Perm: perm, Users: users})
		if err != nil {
			return err
		}
		fmt.Printf("Created ACL %d (%s)\n", id, perm)
		return nil
	},
}

var aclGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one ACL record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid acl id %q: %w", args[0], err)
		}

		store, closeStore, err := openACLStore()
		if err != nil {
			return err
		}
		defer closeStore()

		rec, ok, err := store.Get(context.Background(), uint32(id))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("acl %d not found", id)
		}
		printACL(uint32(id), *rec)
		return nil
	},
}

var aclUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace an ACL record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid acl id %q: %w", args[0], err)
		}
		mask, _ := cmd.Flags().GetString("perm")
		usersRaw, _ := cmd.Flags().GetString("users")

		perm, err := acl.Parse(mask)
		if err != nil {
			return err
		}
		users, err := parseUsers(usersRaw)
		if err != nil {
			return err
		}

		store, closeStore, err := openACLStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.Update(context.Background(), uint32(id), acl.Record{Perm: perm, Users: users}); err != nil {
			return err
		}
		fmt.Printf("Updated ACL %d (%s)\n", id, perm)
		return nil
	},
}

var aclListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every ACL record",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openACLStore()
		if err != nil {
			return err
		}
		defer closeStore()

		entries, err := store.List(context.Background())
		if err != nil {
			return err
		}
		for e := range entries {
			printACL(e.ID, e.Record)
		}
		return nil
	},
}

func init() {
	aclCreateCmd.Flags().String("perm", "---", "Permission mask (e.g. r--, rw-, rwd)")
	aclCreateCmd.Flags().String("users", "", "Comma-separated user ids")
	aclUpdateCmd.Flags().String("perm", "---", "Permission mask (e.g. r--, rw-, rwd)")
	aclUpdateCmd.Flags().String("users", "", "Comma-separated user ids")

	aclCmd.AddCommand(aclCreateCmd)
	aclCmd.AddCommand(aclGetCmd)
	aclCmd.AddCommand(aclUpdateCmd)
	aclCmd.AddCommand(aclListCmd)
}

func openACLStore() (*acl.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	backend, err := openStore(cfg, aclNamespace(cfg))
	if err != nil {
		return nil, nil, err
	}
	return acl.NewStore(backend), func() { _ = backend.Close() }, nil
}

func parseUsers(raw string) ([]uint64, error) {
	if raw == "" {
		return nil, nil
	}
	var users []uint64
	for _, part := range strings.Split(raw, ",") {
		u, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", part, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func printACL(id uint32, rec acl.Record) {
	ids := make([]string, len(rec.Users))
	for i, u := range rec.Users {
		ids[i] = strconv.FormatUint(u, 10)
	}
	fmt.Printf("%-8d %s  users=[%s]\n", id, rec.Perm, strings.Join(ids, ","))
}
