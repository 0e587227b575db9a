package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/erazemk/knjiznica/internal/auth"
	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new database and its admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(c.cfg.DBPath); err == nil {
				return fmt.Errorf("database file %s already exists", c.cfg.DBPath)
			}

			database, password, err := initDatabase(cmd.Context(), c.cfg.DBPath, c.cfg.AdminEmail, c.cfg.AdminName)
			if err != nil {
				return err
			}
			database.Close()

			printInitResult(cmd.OutOrStdout(), c.cfg.DBPath, c.cfg.AdminEmail, password)
			return nil
		},
	}
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cmd.Context(), c.cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			version, err := db.Version(cmd.Context(), database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
			return nil
		},
	}
}

func newUsersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage library accounts",
	}
	cmd.AddCommand(newUsersAddCmd(c), newUsersListCmd(c))
	return cmd
}

func newUsersAddCmd(c *cli) *cobra.Command {
	var in model.NewUser
	var role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account; the password is read from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			in.Password = password
			in.Role = model.Role(role)

			database, err := openDatabase(cmd.Context(), c.cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			user, err := addUser(cmd.Context(), database, in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s <%s> (id %d)\n", user.Role, user.FirstName, user.Email, user.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in.FirstName, "name", "n", "", "first name (used as borrower identifier)")
	f.StringVarP(&in.Email, "email", "e", "", "e-mail address (login)")
	f.StringVarP(&role, "role", "r", string(model.RoleUser), "admin or user")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersListCmd(c *cli) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "" && !model.Role(role).Valid() {
				return fmt.Errorf("invalid role %q (want %s or %s)", role, model.RoleAdmin, model.RoleUser)
			}

			database, err := openDatabase(cmd.Context(), c.cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			users, err := store.ListUsers(cmd.Context(), database, model.Role(role))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.FirstName, u.Email, u.Role)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", "", "only list accounts with this role")
	return cmd
}

// openDatabase opens an existing database and brings its schema up to date.
func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w (run init first)", path, err)
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// addUser validates the input, hashes the password and stores the account.
func addUser(ctx context.Context, database *sql.DB, in model.NewUser) (*model.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return store.CreateUser(ctx, database, in.FirstName, in.Email, hash, in.Role)
}

// initDatabase creates a new database, migrates it and creates the admin
// account with a generated password. The file is removed on failure.
func initDatabase(ctx context.Context, path, adminEmail, adminName string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(ctx, database); err != nil {
		return fail(err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	_, err = addUser(ctx, database, model.NewUser{
		FirstName: adminName,
		Email:     adminEmail,
		Password:  password,
		Role:      model.RoleAdmin,
	})
	if err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

func printInitResult(w io.Writer, dbPath, email, password string) {
	fmt.Fprintf(w, "Database created: %s\n", dbPath)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  E-mail:   %s\n", email)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// readPassword reads a password without echo when in is a terminal, and
// a single line otherwise. Only the line terminator is removed.
func readPassword(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
