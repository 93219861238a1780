package auth

import (
	"strings"

	"github.com/sethvargo/go-password/password"
)

const referralCodeLength = 8

// Ambiguous glyphs (0/O, 1/I/l) are left out so codes survive being read aloud.
var codeGenerator, _ = password.NewGenerator(&password.GeneratorInput{
	LowerLetters: "abcdefghjkmnpqrstuvwxyz",
	UpperLetters: "ABCDEFGHJKMNPQRSTUVWXYZ",
	Digits:       "23456789",
	Symbols:      "-",
})

// GenerateReferralCode returns a random upper-case alphanumeric code.
func GenerateReferralCode() (string, error) {
	code, err := codeGenerator.Generate(referralCodeLength, 3, 0, false, true)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}
