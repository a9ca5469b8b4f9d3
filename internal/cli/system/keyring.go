package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/keyring"
	"github.com/julianstephens/habitlink/internal/storage/postgres"
)

// KeyringSetCmd stores database connection credentials or the API token in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" optional:"" help:"PostgreSQL connection string to store in keyring"`
	APIToken         string `help:"Bearer token required by 'habitlink serve'."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if cmd.ConnectionString == "" && cmd.APIToken == "" {
		return errors.New("nothing to store: pass a connection string or --api-token")
	}

	if cmd.APIToken != "" {
		if err := keyring.SetAPIToken(cmd.APIToken); err != nil {
			return fmt.Errorf("failed to store API token in keyring: %w", err)
		}
		fmt.Println("✓ API token stored successfully in OS keyring")
	}

	if cmd.ConnectionString == "" {
		return nil
	}

	if !postgres.IsConnString(cmd.ConnectionString) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if errors.Is(err, postgres.ErrEmbeddedCredentials) {
			fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
			fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
			fmt.Println("   To keep passwords separate from connection strings, use .pgpass instead.")
		} else {
			return fmt.Errorf("invalid connection string: %w", err)
		}
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}

	fmt.Println("✓ Connection string stored successfully in OS keyring")
	fmt.Println("  You can now use habitlink without the --config flag")
	return nil
}

// KeyringDeleteCmd removes a stored secret from the OS keyring
type KeyringDeleteCmd struct {
	APIToken bool `help:"Delete the API token instead of the connection string."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	what := "connection string"
	del := keyring.DeleteConnectionString
	if cmd.APIToken {
		what = "API token"
		del = keyring.DeleteAPIToken
	}

	if err := del(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", what)
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", what, err)
	}

	fmt.Printf("✓ %s deleted from OS keyring\n", capitalize(what))
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	fmt.Println("✓ OS keyring is available")

	connStr, err := keyring.GetConnectionString()
	switch {
	case err == nil:
		fmt.Printf("✓ Connection string is stored in keyring: %s\n", maskPassword(connStr))
	case errors.Is(err, keyring.ErrNotFound):
		fmt.Println("ℹ No connection string stored in keyring")
	default:
		return fmt.Errorf("failed to read connection string: %w", err)
	}

	if _, err := keyring.GetAPIToken(); err == nil {
		fmt.Println("✓ API token is stored in keyring")
	} else if errors.Is(err, keyring.ErrNotFound) {
		fmt.Println("ℹ No API token stored in keyring; 'habitlink serve' will accept unauthenticated requests")
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			// The last @ separates user info from host.
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		masked := make([]string, 0, len(parts))
		for _, part := range parts {
			if strings.HasPrefix(part, "password=") {
				masked = append(masked, "password=****")
			} else {
				masked = append(masked, part)
			}
		}
		return strings.Join(masked, " ")
	}

	return connStr
}
