package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"library-catalog/auth"
	"library-catalog/blob"
	"library-catalog/catalog"
	"library-catalog/config"
)

// themeKey stores the UI theme preference. It belongs to the CLI layer, not
// the stores.
const themeKey = "lc_theme_v1"

// app bundles the wired-up stores for the command handlers.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	kv       blob.Store
	catalog  *catalog.Store
	accounts *auth.Store
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "libcat",
		Short:         "Library catalog with role-gated circulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
	}

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		registerCmd(a),
		addCmd(a),
		listCmd(a),
		borrowCmd(a),
		returnCmd(a),
		removeCmd(a),
		statsCmd(a),
		usersCmd(a),
		themeCmd(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.teardown()
		os.Exit(1)
	}
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.Debug {
		a.log, err = zap.NewDevelopment()
	} else {
		a.log, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	kv, err := blob.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.kv = kv

	a.catalog = catalog.NewStore(ctx, kv, a.log.Named("catalog"))
	a.accounts = auth.NewStore(ctx, kv, auth.NewBcryptHasher(), a.log.Named("auth"))

	// First run: guarantee an admin exists before any login is attempted.
	if err := a.accounts.BootstrapDefaultAdmin(ctx); err != nil {
		return err
	}
	return nil
}

func (a *app) teardown() {
	if a.kv != nil {
		a.kv.Close()
		a.kv = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// requireRole checks the active session against the role hierarchy
// (admin > librarian > member).
func (a *app) requireRole(min auth.Role) (*auth.Session, error) {
	sess := a.accounts.Session()
	if sess == nil {
		return nil, fmt.Errorf("not logged in; run 'libcat login' first")
	}
	if !sess.Role.AtLeast(min) {
		return nil, fmt.Errorf("requires %s role (you are logged in as %s)", min, sess.Role)
	}
	return sess, nil
}

// ---------------------------------------------------------------------------
// Session commands
// ---------------------------------------------------------------------------

func loginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and start a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(fmt.Sprintf("Password for %s: ", args[0]))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			sess := a.accounts.Login(cmd.Context(), args[0], password)
			if sess == nil {
				return fmt.Errorf("invalid username or password")
			}
			fmt.Printf("Logged in as %s (%s)\n", sess.Username, sess.Role)
			return nil
		},
	}
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.accounts.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			sess := a.accounts.Session()
			if sess == nil {
				fmt.Println("Not logged in.")
				return nil
			}
			fmt.Printf("%s (%s), logged in %s\n",
				sess.Username, sess.Role, sess.LoggedAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Register a new account (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(fmt.Sprintf("Password for %s: ", args[0]))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			created, err := a.accounts.AdminRegister(cmd.Context(), args[0], password, auth.Role(role))
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("could not register %q: empty credential or username taken", args[0])
			}
			fmt.Printf("Registered %s with role %s\n", args[0], role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(auth.RoleMember), "account role: admin, librarian, or member")
	return cmd
}

func usersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered accounts (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if _, err := a.requireRole(auth.RoleAdmin); err != nil {
				return err
			}
			fmt.Printf("%-25s %-12s %s\n", "Username", "Role", "Created")
			fmt.Println(strings.Repeat("-", 55))
			for _, acc := range a.accounts.Accounts() {
				fmt.Printf("%-25s %-12s %s\n",
					truncateString(acc.Username, 25), acc.Role, acc.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Catalog commands
// ---------------------------------------------------------------------------

func addCmd(a *app) *cobra.Command {
	var params catalog.AddParams
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog (librarian or admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireRole(auth.RoleLibrarian); err != nil {
				return err
			}
			book, err := a.catalog.Add(cmd.Context(), params)
			if err != nil {
				return err
			}
			fmt.Printf("Added %q by %s (ID %s)\n", book.Title, book.Author, book.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&params.Title, "title", "", "book title (required)")
	cmd.Flags().StringVar(&params.Author, "author", "", "book author (required)")
	cmd.Flags().StringVar(&params.ISBN, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&params.Category, "category", "", "category")
	cmd.Flags().IntVar(&params.Year, "year", 0, "publication year")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	var filter catalog.Filter
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog books, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if _, err := a.requireRole(auth.RoleMember); err != nil {
				return err
			}
			filter.Status = catalog.Status(status)

			fmt.Printf("%-36s %-30s %-20s %-10s %-25s\n", "ID", "Title", "Author", "Status", "Borrower")
			fmt.Println(strings.Repeat("-", 125))
			count := 0
			for book := range a.catalog.List(filter) {
				borrower := ""
				if book.Borrower != nil {
					borrower = book.Borrower.Name
					if book.Borrower.DueDate != "" {
						borrower += " (due " + book.Borrower.DueDate + ")"
					}
				}
				fmt.Printf("%-36s %-30s %-20s %-10s %-25s\n",
					book.ID,
					truncateString(book.Title, 30),
					truncateString(book.Author, 20),
					book.Status,
					truncateString(borrower, 25))
				count++
			}
			if count == 0 {
				fmt.Println("No books match.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Text, "text", "", "substring match on title/author/isbn/category")
	cmd.Flags().StringVar(&filter.Category, "category", "", "exact category match")
	cmd.Flags().StringVar(&status, "status", "", "exact status match: available or borrowed")
	return cmd
}

func borrowCmd(a *app) *cobra.Command {
	var name, due string
	cmd := &cobra.Command{
		Use:   "borrow <book-id>",
		Short: "Borrow a book (librarian or admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireRole(auth.RoleLibrarian); err != nil {
				return err
			}
			book, err := a.catalog.Borrow(cmd.Context(), args[0], name, due)
			if err != nil {
				return err
			}
			fmt.Printf("%q borrowed by %s\n", book.Title, book.Borrower.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "borrower name (required)")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD (optional)")
	return cmd
}

func returnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <book-id>",
		Short: "Return a borrowed book (librarian or admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireRole(auth.RoleLibrarian); err != nil {
				return err
			}
			book, err := a.catalog.Return(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%q is available again\n", book.Title)
			return nil
		},
	}
}

func removeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Delete a book from the catalog (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireRole(auth.RoleAdmin); err != nil {
				return err
			}
			if err := a.catalog.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Book removed.")
			return nil
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if _, err := a.requireRole(auth.RoleMember); err != nil {
				return err
			}
			st := a.catalog.Stats()
			fmt.Printf("Total: %d | Available: %d | Borrowed: %d\n",
				st.Total, st.Available, st.Borrowed)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Preferences
// ---------------------------------------------------------------------------

func themeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "theme [dark|light]",
		Short: "Show or set the UI theme preference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				raw, err := a.kv.Get(ctx, themeKey)
				if err != nil {
					fmt.Println("light")
					return nil
				}
				fmt.Println(string(raw))
				return nil
			}
			theme := args[0]
			if theme != "dark" && theme != "light" {
				return fmt.Errorf("theme must be dark or light")
			}
			if err := a.kv.Put(ctx, themeKey, []byte(theme)); err != nil {
				return fmt.Errorf("save theme: %w", err)
			}
			fmt.Printf("Theme set to %s\n", theme)
			return nil
		},
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}
