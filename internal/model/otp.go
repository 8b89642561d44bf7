package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OTPToken is a single-use password reset code. Only the bcrypt hash is stored.
type OTPToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	CodeHash  string        `bson:"codeHash"`
	ExpiresAt time.Time     `bson:"expiresAt"`
	Used      bool          `bson:"used"`
	CreatedAt time.Time     `bson:"createdAt"`
}
