package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"mineralscraper/pkg/auth"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/reddit"
	"mineralscraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Reddit app credentials",
	Long: `Manage stored Reddit app credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (MINERALSCRAPER_CLIENT_ID, ...), read only

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store Reddit app credentials",
	Long: `Store the credentials of a Reddit "script" app.

You will be prompted for:
  - Client ID
  - Client secret
  - Reddit username and password (optional, raises the rate limit)
  - User agent (optional, press Enter for the default)

The account is saved under the given name, or "default".`,
	Example: `  # Interactive login
  mineralscraper auth login

  # Store a second app under its own name
  mineralscraper auth login research`,
	Args: cobra.MaximumNArgs(1),
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials. Without a name you pick the account from a list.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with their secrets masked.`,
	RunE:  runList,
}

var skipVerify bool

func init() {
	// Set here rather than in the literal: runLogin refers back to loginCmd.
	loginCmd.RunE = runLogin

	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "store the credentials without logging in to Reddit first")
}

// prompter reads answers from the terminal
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter() *prompter {
	return &prompter{in: bufio.NewReader(os.Stdin), out: os.Stdout, fd: int(os.Stdin.Fd())}
}

// ask prints question and returns the trimmed answer
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	input, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// confirm asks a yes/no question; anything but y or yes is no
func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " (y/N): ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// secret reads a value without echoing it when stdin is a terminal
func (p *prompter) secret(question string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.ask(question)
	}

	fmt.Fprint(p.out, question)
	value, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(value)), nil
}

// required asks until a non-empty answer is given
func (p *prompter) required(question string, read func(string) (string, error)) (string, error) {
	for {
		value, err := read(question)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		fmt.Fprintln(p.out, "   A value is required.")
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := auth.DefaultAccountName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	p := newPrompter()
	auth.ShowAppRegistrationGuide(p.out)

	if existing, _ := manager.Retrieve(name); existing != nil {
		if !p.confirm(fmt.Sprintf("\nAccount '%s' already exists. Update credentials?", name)) {
			return nil
		}
	}

	account := &auth.Account{Name: name}
	fmt.Fprintln(p.out)
	if account.ClientID, err = p.required("Client ID: ", p.ask); err != nil {
		return fmt.Errorf("failed to read client ID: %w", err)
	}
	if account.ClientSecret, err = p.required("Client secret: ", p.secret); err != nil {
		return fmt.Errorf("failed to read client secret: %w", err)
	}
	if account.Username, err = p.ask("Reddit username (optional): "); err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if account.Username != "" {
		if account.Password, err = p.required("Reddit password: ", p.secret); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if account.UserAgent, err = p.ask("User agent (press Enter for the default): "); err != nil {
		return fmt.Errorf("failed to read user agent: %w", err)
	}

	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrInvalidCredentials, err)
	}

	if !skipVerify && account.Username != "" {
		fmt.Fprintln(p.out, "\nChecking the credentials with Reddit...")
		who, err := verifyAccount(cmd.Context(), account)
		if err != nil {
			ui.PrintError("Reddit rejected the credentials", err.Error())
			return err
		}
		ui.PrintInfo("Authenticated as", "u/"+who)
	}

	account.LastModified = time.Now()
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", name))
	fmt.Fprintln(p.out, "\nUse it with:")
	if name == auth.DefaultAccountName {
		fmt.Fprintln(p.out, "  mineralscraper scrape")
	} else {
		fmt.Fprintf(p.out, "  mineralscraper scrape --account %s\n", name)
	}
	fmt.Fprintln(p.out, "\nNever share your credentials or config files!")
	return nil
}

// verifyAccount logs in with the account and returns the authenticated
// username
func verifyAccount(ctx context.Context, account *auth.Account) (string, error) {
	cfg, err := loadConfig(loginCmd, nil)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	account.Apply(&cfg.Reddit)

	ctx, cancel := context.WithTimeout(ctx, cfg.Reddit.Timeout)
	defer cancel()

	client, err := reddit.NewClient(ctx, cfg, logger.NewNopLogger())
	if err != nil {
		return "", err
	}
	return client.Me(ctx)
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	p := newPrompter()
	fmt.Fprintln(p.out, "Select account to remove:")
	for i, account := range accounts {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, account.Name)
	}
	fmt.Fprintf(p.out, "  0. Cancel\n\n")

	input, err := p.ask("Choice: ")
	if err != nil {
		return err
	}
	var choice int
	if _, err := fmt.Sscanf(input, "%d", &choice); err != nil || choice < 0 || choice > len(accounts) {
		return fmt.Errorf("invalid choice %q", input)
	}
	if choice == 0 {
		return nil
	}

	name := accounts[choice-1].Name
	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'mineralscraper auth login' to add an account")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	printAccounts(os.Stdout, accounts)
	return nil
}

func printAccounts(w io.Writer, accounts []*auth.Account) {
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(w, "%d. %s\n", i+1, sanitized.Name)
		fmt.Fprintf(w, "   Client ID: %s\n", sanitized.ClientID)
		fmt.Fprintf(w, "   Client secret: %s\n", sanitized.ClientSecret)
		if sanitized.Username != "" {
			fmt.Fprintf(w, "   Username: %s\n", sanitized.Username)
		}
		if sanitized.UserAgent != "" {
			fmt.Fprintf(w, "   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(w, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w)
	}
}
