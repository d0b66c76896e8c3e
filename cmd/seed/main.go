// Command seed resets the catalog database, bootstraps the default admin
// account, and loads a fixed set of sample books for development.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"library-catalog/auth"
	"library-catalog/blob"
	"library-catalog/catalog"
	"library-catalog/config"
)

type seedBook struct {
	title    string
	author   string
	isbn     string
	category string
	year     int
}

var seedBooks = []seedBook{
	{"1984", "George Orwell", "9780451524935", "Fiction", 1949},
	{"Animal Farm", "George Orwell", "9780451526342", "Fiction", 1945},
	{"The Art of War", "Sun Tzu", "9781599869773", "Philosophy", 0},
	{"The Fellowship of the Ring", "J.R.R. Tolkien", "9780547928210", "Fantasy", 1954},
	{"The Two Towers", "J.R.R. Tolkien", "9780547928203", "Fantasy", 1954},
	{"The Return of the King", "J.R.R. Tolkien", "9780547928197", "Fantasy", 1955},
	{"Romeo and Juliet", "William Shakespeare", "9780743477116", "Drama", 1597},
	{"The Three Musketeers", "Alexandre Dumas", "9780140367478", "Adventure", 1844},
	{"The Diary of a Young Girl", "Anne Frank", "9780553296983", "Biography", 1947},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Clean up any existing database files.
	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	kv, err := blob.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	ctx := context.Background()

	accounts := auth.NewStore(ctx, kv, auth.NewBcryptHasher(), log.Named("auth"))
	if err := accounts.BootstrapDefaultAdmin(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error bootstrapping admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Default admin ready (%s / %s)\n",
		auth.DefaultAdminUsername, auth.DefaultAdminPassword)

	store := catalog.NewStore(ctx, kv, log.Named("catalog"))

	successCount := 0
	errorCount := 0
	for _, sb := range seedBooks {
		fmt.Printf("Adding: %s by %s... ", sb.title, sb.author)
		book, err := store.Add(ctx, catalog.AddParams{
			Title:    sb.title,
			Author:   sb.author,
			ISBN:     sb.isbn,
			Category: sb.category,
			Year:     sb.year,
		})
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("OK (ID: %s)\n", book.ID)
		successCount++
	}

	fmt.Printf("\nSeed complete!\n")
	fmt.Printf("Books added: %d\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		st := store.Stats()
		fmt.Printf("\nCatalog: %d total, %d available, %d borrowed\n",
			st.Total, st.Available, st.Borrowed)
		fmt.Printf("%-30s %-25s %-12s\n", "Title", "Author", "Category")
		fmt.Println(strings.Repeat("-", 70))
		for book := range store.List(catalog.Filter{}) {
			fmt.Printf("%-30s %-25s %-12s\n",
				truncateString(book.Title, 30),
				truncateString(book.Author, 25),
				book.Category)
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
