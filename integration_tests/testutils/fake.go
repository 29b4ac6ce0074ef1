package testutils

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
	userdb "github.com/bmxtools/raceday/app/modules/user/infrastructure/repositories"
)

// FakeClub builds an unsaved club with plausible random data.
func FakeClub() *clubdb.Club {
	name := gofakeit.City() + " BMX"
	return &clubdb.Club{
		UUID:         uuid.New(),
		Name:         name,
		Slug:         slugify(name) + "-" + gofakeit.LetterN(6),
		Timezone:     "America/Denver",
		Location:     gofakeit.City() + ", " + gofakeit.StateAbr(),
		ContactEmail: strings.ToLower(gofakeit.Email()),
	}
}

// SeedClub inserts a fake club and returns it.
func SeedClub(t *testing.T, ctx context.Context, db bun.IDB) *clubdb.Club {
	t.Helper()
	club := FakeClub()
	if _, err := db.NewInsert().Model(club).Exec(ctx); err != nil {
		t.Fatalf("failed to seed club: %v", err)
	}
	return club
}

// SeedUser inserts a user with the given password and returns it.
func SeedUser(t *testing.T, ctx context.Context, db bun.IDB, password string) *userdb.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &userdb.User{
		UUID:         uuid.New(),
		Email:        fmt.Sprintf("%s-%s", gofakeit.LetterN(6), strings.ToLower(gofakeit.Email())),
		PasswordHash: string(hash),
	}
	if _, err := db.NewInsert().Model(user).Exec(ctx); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
