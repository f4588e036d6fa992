package main

import (
	"flag"
	"fmt"
	"os"

	"cyber-shield/internal/auth"
)

func main() {
	dataDir := flag.String("data", "./data", "Directory containing users.json")
	username := flag.String("username", "admin", "User whose password is reset")
	password := flag.String("password", "", "New password")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "resetpassword: -password is required")
		os.Exit(2)
	}

	userManager, err := auth.NewUserManager(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resetpassword: %v\n", err)
		os.Exit(1)
	}
	if err := userManager.ResetPassword(*username, *password); err != nil {
		fmt.Fprintf(os.Stderr, "resetpassword: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Password for user %s has been reset\n", *username)
}
