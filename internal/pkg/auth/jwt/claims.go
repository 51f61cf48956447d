package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims issued by the PulseChat server.
// It embeds the standard claims required for validity checks and adds the
// identity fields the chat surface needs.
type Payload struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer).
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the account's unique identifier.
	UserID string `json:"user_id"`

	// Username is the account's unique login name, also used as the display
	// name on the realtime channel.
	Username string `json:"username"`
}
