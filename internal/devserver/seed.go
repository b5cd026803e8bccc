package devserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rift/client/internal/repositories"
)

// Demo account credentials.
const (
	DemoUsername = "rift"
	DemoPassword = "riftdemo1"
)

var demoClips = []struct {
	caption  string
	url      string
	duration int
}{
	{"Golden hour at the pier", "https://samples.rift.dev/pier.mp4", 14},
	{"Latte art, attempt #37", "https://samples.rift.dev/latte.mp4", 22},
	{"Skatepark lines", "https://samples.rift.dev/skate.mp4", 31},
	{"Rainy window lofi", "https://samples.rift.dev/rain.mp4", 58},
}

func seed(ctx context.Context, mem *repositories.Memory, now time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	demo := repositories.Account{
		ID:           uuid.NewString(),
		Username:     DemoUsername,
		Email:        "demo@rift.dev",
		PasswordHash: string(hash),
		DisplayName:  "Rift Demo",
		Bio:          "Sample clips for local development",
		Verified:     true,
		CreatedAt:    now,
	}
	if err := mem.Users().Create(ctx, demo); err != nil {
		return err
	}

	for i, clip := range demoClips {
		err := mem.Videos().Create(ctx, repositories.Video{
			ID:        uuid.NewString(),
			UserID:    demo.ID,
			VideoURL:  clip.url,
			Caption:   clip.caption,
			Duration:  clip.duration,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
