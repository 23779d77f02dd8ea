package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Settings bounds enforced at round creation.
const (
	MinQuestionCount   = 5
	MaxQuestionCount   = 50
	MinTimePerQuestion = 5
	MaxTimePerQuestion = 60
	MaxPlayerNameLen   = 32
)

// walletPattern is the base58-shaped check used for prize-recipient addresses.
// It is a format gate, not a full address validity proof.
var walletPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Validate checks the admin-supplied settings against the documented bounds.
func (s RoundSettings) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSettings)
	}
	if s.QuestionCount < MinQuestionCount || s.QuestionCount > MaxQuestionCount {
		return fmt.Errorf("%w: questionCount must be between %d and %d", ErrInvalidSettings, MinQuestionCount, MaxQuestionCount)
	}
	if s.TimePerQuestion < MinTimePerQuestion || s.TimePerQuestion > MaxTimePerQuestion {
		return fmt.Errorf("%w: timePerQuestion must be between %ds and %ds", ErrInvalidSettings, MinTimePerQuestion, MaxTimePerQuestion)
	}
	if len(s.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidSettings)
	}
	if s.StartDelay < 0 {
		return fmt.Errorf("%w: startDelay must not be negative", ErrInvalidSettings)
	}
	for _, p := range s.Prizes {
		if p.Rank < 1 || p.Amount < 0 {
			return fmt.Errorf("%w: prize rank must be positive and amount non-negative", ErrInvalidSettings)
		}
	}
	return nil
}

// ValidatePlayerName rejects blank or oversized display names.
func ValidatePlayerName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > MaxPlayerNameLen {
		return ErrInvalidName
	}
	return nil
}

// ValidateWalletAddress accepts an empty address (wallets are optional) or a
// 32-44 character base58 string.
func ValidateWalletAddress(addr string) error {
	if addr == "" {
		return nil
	}
	if !walletPattern.MatchString(addr) {
		return ErrInvalidWalletAddress
	}
	return nil
}
