// Command crud-demo walks through create, read, update and delete against a
// running FurrDB server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/furrdb/furr"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Server host")
	port := flag.Int("port", furr.DefaultPort, "Server port")
	flag.Parse()

	if err := run(context.Background(), furr.Config{Host: *host, Port: *port, Timeout: 5 * time.Second}); err != nil {
		fmt.Fprintf(os.Stderr, "crud-demo: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg furr.Config) error {
	s, err := furr.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Println("Connected to FurrDB at", s.Addr())

	fmt.Println("[CREATE] Set user:1 name and email")
	if err := s.Set(ctx, "user:1:name", "Alice"); err != nil {
		return err
	}
	if err := s.Set(ctx, "user:1:email", "alice@example.com"); err != nil {
		return err
	}

	fmt.Println("\n[READ] Get user:1 name and email")
	if err := printItem(ctx, s, "Name", "user:1:name"); err != nil {
		return err
	}
	if err := printItem(ctx, s, "Email", "user:1:email"); err != nil {
		return err
	}

	fmt.Println("\n[UPDATE] Update user:1 name")
	if err := s.Set(ctx, "user:1:name", "Alicia Smith"); err != nil {
		return err
	}
	if err := printItem(ctx, s, "Updated name", "user:1:name"); err != nil {
		return err
	}

	fmt.Println("\n[EXISTS] Check if user:1:email exists")
	exists, err := s.Exists(ctx, "user:1:email")
	if err != nil {
		return err
	}
	fmt.Println("Exists:", exists)

	fmt.Println("\n[DELETE] Delete user:1:email")
	deleted, err := s.Del(ctx, "user:1:email")
	if err != nil {
		return err
	}
	fmt.Println("Deleted:", deleted)
	if err := printItem(ctx, s, "Email after delete", "user:1:email"); err != nil {
		return err
	}

	fmt.Println("\n[KEYS] List all keys")
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(keys, ", "))

	if err := s.Exit(ctx); err != nil {
		return err
	}
	fmt.Println("\nConnection closed")
	return nil
}

func printItem(ctx context.Context, s *furr.Session, label, key string) error {
	item, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !item.Found {
		fmt.Printf("%s: (nil)\n", label)
		return nil
	}
	fmt.Printf("%s: %s\n", label, item.Value)
	return nil
}
