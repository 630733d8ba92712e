package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vvv-blip/baccarat-bot/internal/game/table"
	"github.com/vvv-blip/baccarat-bot/internal/ledger"
	"github.com/vvv-blip/baccarat-bot/internal/pkg/lock"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
)

func TestUserText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"wrapped validation", fmt.Errorf("set bet: %w", table.ErrInvalidAmount), "Invalid amount"},
		{"full table", table.ErrSessionFull, "full"},
		{"stale button", table.ErrStaleRound, "finished game"},
		{"no session", table.ErrNoSession, "/start"},
		{"wallet", table.ErrWalletRequired, "private chat"},
		{"busy", lock.ErrLockTimeout, "busy"},
		{"lost update", repository.ErrVersionConflict, "try again"},
		{"ledger", ledger.ErrTxFailed, retryText},
		{"unknown", errors.New("boom"), retryText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, userText(tt.err), tt.want)
		})
	}
}
