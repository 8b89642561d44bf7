package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"erpsaas/internal/apperr"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	tempPasswordLength = 14
	otpDigits          = 6
	// bcrypt rejects longer input.
	maxSecretBytes = 72

	lowerChars  = "abcdefghijkmnpqrstuvwxyz"
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars  = "23456789"
	symbolChars = "!@#$%*?"
)

// newTempPassword returns a random ERP password with at least one character
// from every class, which the ERP password policy requires.
func newTempPassword() (string, error) {
	all := lowerChars + upperChars + digitChars + symbolChars
	buf := make([]byte, 0, tempPasswordLength)
	for _, set := range []string{lowerChars, upperChars, digitChars, symbolChars} {
		c, err := randChar(set)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < tempPasswordLength {
		c, err := randChar(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	// shuffle so the class order is not fixed
	for i := len(buf) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		buf[i], buf[j.Int64()] = buf[j.Int64()], buf[i]
	}
	return string(buf), nil
}

func randChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("generate random character: %w", err)
	}
	return set[n.Int64()], nil
}

// newOTP returns a zero-padded numeric one-time code.
func newOTP() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// checkSecretLength rejects secrets bcrypt cannot hash. The limit is in
// bytes, so multi-byte characters count more than once.
func checkSecretLength(field, secret string) error {
	if len(secret) > maxSecretBytes {
		return apperr.Validation("%s must be at most %d bytes", field, maxSecretBytes)
	}
	return nil
}

func hashSecret(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(b), nil
}

func checkSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags of v and reports every failing field
// as one validation error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("%v", err)
	}
	var missing, invalid []string
	for _, fe := range verrs {
		name := lowerFirst(fe.Field())
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	switch {
	case len(missing) > 0 && len(invalid) > 0:
		return apperr.Validation("missing required fields: %s; invalid fields: %s", strings.Join(missing, ", "), strings.Join(invalid, ", "))
	case len(missing) > 0:
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	default:
		return apperr.Validation("invalid fields: %s", strings.Join(invalid, ", "))
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
