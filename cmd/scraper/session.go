package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/profile-scraper/internal/profile"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage per-user browser profiles",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a persistent login session for a user",
	Long: `Opens a visible browser against the user's profile directory and waits for
you to log in manually. Cookies and login state are saved to the profile and
reused by every later browser-engine job for that user. Required once per
user before any browser-engine scrape.`,
	RunE: runSessionCreate,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users with saved browser profiles",
	RunE:  runSessionList,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a user's browser profile",
	RunE:  runSessionDelete,
}

var (
	sessionUserID string
	sessionURL    string
)

func init() {
	sessionCreateCmd.Flags().StringVarP(&sessionUserID, "user", "u", "", "User identifier (required)")
	sessionCreateCmd.Flags().StringVar(&sessionURL, "url", "", "Login page to open (required)")
	if err := sessionCreateCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}
	if err := sessionCreateCmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("failed to mark url flag as required: %v", err))
	}

	sessionDeleteCmd.Flags().StringVarP(&sessionUserID, "user", "u", "", "User identifier (required)")

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionCreate(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := a.profiles.CreateSession(ctx, sessionUserID, sessionURL, profile.SessionOptions{}); err != nil {
		return fmt.Errorf("session creation failed: %w", err)
	}
	fmt.Printf("Session saved for user %s\n", sessionUserID)
	return nil
}

func runSessionList(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	users, err := a.profiles.List()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No profiles")
		return nil
	}
	for _, user := range users {
		fmt.Println(user)
	}
	return nil
}

func runSessionDelete(_ *cobra.Command, _ []string) error {
	if sessionUserID == "" {
		return fmt.Errorf("--user is required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.profiles.Delete(sessionUserID); err != nil {
		return err
	}
	fmt.Printf("Deleted profile for user %s\n", sessionUserID)
	return nil
}
