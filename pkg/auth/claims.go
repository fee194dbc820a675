package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ResidentID uuid.UUID
	Role       enums.ActorRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to portal clients.
type AccessTokenClaims struct {
	ResidentID uuid.UUID       `json:"resident_id"`
	Role       enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
