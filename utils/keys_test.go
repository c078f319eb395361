package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"displayName":       "display_name",
		"DisplayName":       "display_name",
		"userID":            "user_id",
		"avatarURL":         "avatar_url",
		"HTTPServer":        "http_server",
		"inGameName":        "in_game_name",
		"already_snake":     "already_snake",
		"prize-pool":        "prize_pool",
		"maxParticipants2x": "max_participants2x",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}

func TestSnakeCaseKeysNested(t *testing.T) {
	in := map[string]any{
		"displayName": "Neo",
		"socialLinks": map[string]any{"twitchUrl": "https://twitch.tv/neo"},
		"prizeDistribution": []any{
			map[string]any{"place": float64(1), "amountCents": float64(500)},
		},
		"tags": []any{"camelValueStays"},
	}

	got := SnakeCaseKeys(in)

	assert.Equal(t, map[string]any{
		"display_name": "Neo",
		"social_links": map[string]any{"twitch_url": "https://twitch.tv/neo"},
		"prize_distribution": []any{
			map[string]any{"place": float64(1), "amount_cents": float64(500)},
		},
		"tags": []any{"camelValueStays"},
	}, got)
}

func TestSnakeCaseKeysPrefersSnakeOnCollision(t *testing.T) {
	got := SnakeCaseKeys(map[string]any{"userId": "camel", "user_id": "snake"})
	assert.Equal(t, map[string]any{"user_id": "snake"}, got)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	assert.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong horse", hash))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("player@arena.gg"))
	assert.False(t, IsValidEmail("player@arena"))
	assert.False(t, IsValidEmail("Player <player@arena.gg>"))
	assert.False(t, IsValidEmail("nope"))
}
