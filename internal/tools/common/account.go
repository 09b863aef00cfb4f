package common

import (
	"github.com/teemow/gmailcli/internal/server"
)

// GetAccountFromArgs returns the "account" argument, or the server's default
// account when the argument is missing or empty.
func GetAccountFromArgs(sc *server.ServerContext, args map[string]any) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return sc.DefaultAccount()
}
