package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SocialLinks is stored as a JSONB object on the profile row.
type SocialLinks struct {
	Discord *string `json:"discord,omitempty"`
	Twitch  *string `json:"twitch,omitempty"`
	YouTube *string `json:"youtube,omitempty"`
	Twitter *string `json:"twitter,omitempty"`
	Steam   *string `json:"steam,omitempty"`
}

func (s SocialLinks) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SocialLinks) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = SocialLinks{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("social_links: unsupported source type")
	}
}

type Profile struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name"`
	Email       *string     `json:"email,omitempty"`
	Bio         *string     `json:"bio,omitempty"`
	Country     *string     `json:"country,omitempty"`
	MainGame    *string     `json:"main_game,omitempty"`
	SocialLinks SocialLinks `json:"social_links"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	AvatarKey *string `json:"-"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
