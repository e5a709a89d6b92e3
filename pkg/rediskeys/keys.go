package rediskeys

import "fmt"

// TokenKey generates the Redis key holding the current provider JWT for the
// given namespace.
func TokenKey(namespace string) string {
	return fmt.Sprintf("%s:auth:token", namespace)
}

// TokenExpiryKey generates the Redis key holding the expires_in value the
// provider reported when the cached token was issued. It shares the TTL of
// the token key so both disappear together.
func TokenExpiryKey(namespace string) string {
	return fmt.Sprintf("%s:auth:token_expiry", namespace)
}
