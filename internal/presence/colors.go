package presence

import (
	"context"
	"encoding/json"
	"math/rand"

	"github.com/redis/go-redis/v9"

	"github.com/syncpad/backend/internal/store"
)

// Color is a display color with a light variant for selection highlights.
type Color struct {
	Color string `json:"color"`
	Light string `json:"light"`
}

// DefaultColor is used when the cache is unavailable.
var DefaultColor = Color{Color: "#30bced", Light: "#30bced33"}

// palette is the fixed set of collaborator colors.
var palette = []Color{
	{Color: "#30bced", Light: "#30bced33"},
	{Color: "#6eeb83", Light: "#6eeb8333"},
	{Color: "#ffbc42", Light: "#ffbc4233"},
	{Color: "#ecd444", Light: "#ecd44433"},
	{Color: "#ee6352", Light: "#ee635233"},
	{Color: "#9ac2c9", Light: "#9ac2c933"},
	{Color: "#8acb88", Light: "#8acb8833"},
	{Color: "#1be7ff", Light: "#1be7ff33"},
}

// ColorFor returns the cached display color for a user key, assigning a
// random palette entry on first use. The assignment is stable for the
// lifetime of the cache entry: every later call returns the same color
// until the entry is evicted on disconnect.
func (s *Store) ColorFor(ctx context.Context, userKey string) (Color, error) {
	key := store.ColorKey(userKey)

	data, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var c Color
		if jsonErr := json.Unmarshal([]byte(data), &c); jsonErr == nil {
			return c, nil
		}
		// Unreadable cache entry, fall through and reassign.
	} else if err != redis.Nil {
		return DefaultColor, err
	}

	c := palette[rand.Intn(len(palette))]
	encoded, err := json.Marshal(c)
	if err != nil {
		return c, err
	}
	if err := s.rdb.Set(ctx, key, encoded, 0).Err(); err != nil {
		return c, err
	}
	return c, nil
}
