package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bxcodec/faker/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/NelminDev/PwnedCraft/structs"
)

func withStorage(t *testing.T, f func(ctx context.Context, s *Storage)) {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}()
	f(ctx, s)
}

func fakeUser(t *testing.T) *User {
	t.Helper()
	return &User{
		ID:           uuid.NewString(),
		Name:         faker.Username(),
		PasswordHash: faker.Password(),
		GameMode:     structs.Survival,
		CreatedAt:    time.Now().Unix(),
		LastLogin:    time.Now().Unix(),
	}
}

func TestStoreAndLoadUser(t *testing.T) {
	withStorage(t, func(ctx context.Context, s *Storage) {
		user := fakeUser(t)
		if err := s.StoreUser(ctx, user, false); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadUser(ctx, user.Name)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(user, got); diff != "" {
			t.Errorf("loaded user mismatch: %s", diff)
		}

		// Names resolve case insensitively.
		if _, err := s.LoadUser(ctx, strings.ToUpper(user.Name)); err != nil {
			t.Errorf("upper-cased load failed: %v", err)
		}
		if exists, err := s.UserExists(ctx, user.Name); err != nil || !exists {
			t.Errorf("UserExists() = %v, %v, want true, nil", exists, err)
		}
	})
}

func TestLoadMissingUser(t *testing.T) {
	withStorage(t, func(ctx context.Context, s *Storage) {
		if _, err := s.LoadUser(ctx, "nobody"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("got %v, want ErrNotExist", err)
		}
		if exists, err := s.UserExists(ctx, "nobody"); err != nil || exists {
			t.Errorf("UserExists() = %v, %v, want false, nil", exists, err)
		}
	})
}

func TestStoreUserDuplicate(t *testing.T) {
	withStorage(t, func(ctx context.Context, s *Storage) {
		user := fakeUser(t)
		if err := s.StoreUser(ctx, user, false); err != nil {
			t.Fatal(err)
		}

		dupe := fakeUser(t)
		dupe.Name = strings.ToUpper(user.Name)
		if err := s.StoreUser(ctx, dupe, false); !errors.Is(err, ErrUserExists) {
			t.Errorf("got %v, want ErrUserExists", err)
		}

		user.PasswordHash = faker.Password()
		user.GameMode = structs.Creative
		if err := s.StoreUser(ctx, user, true); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadUser(ctx, user.Name)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(user, got); diff != "" {
			t.Errorf("overwritten user mismatch: %s", diff)
		}
	})
}

func TestSetGameMode(t *testing.T) {
	withStorage(t, func(ctx context.Context, s *Storage) {
		user := fakeUser(t)
		if err := s.StoreUser(ctx, user, false); err != nil {
			t.Fatal(err)
		}
		if err := s.SetGameMode(ctx, user.Name, structs.Spectator); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadUser(ctx, user.Name)
		if err != nil {
			t.Fatal(err)
		}
		if got.GameMode != structs.Spectator {
			t.Errorf("GameMode = %v, want %v", got.GameMode, structs.Spectator)
		}
		if err := s.SetGameMode(ctx, "nobody", structs.Creative); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("got %v, want ErrNotExist", err)
		}
	})
}

func TestTouchLastLogin(t *testing.T) {
	withStorage(t, func(ctx context.Context, s *Storage) {
		user := fakeUser(t)
		user.LastLogin = 0
		if err := s.StoreUser(ctx, user, false); err != nil {
			t.Fatal(err)
		}
		when := time.Now()
		if err := s.TouchLastLogin(ctx, user.Name, when); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadUser(ctx, user.Name)
		if err != nil {
			t.Fatal(err)
		}
		if got.LastLogin != when.Unix() {
			t.Errorf("LastLogin = %v, want %v", got.LastLogin, when.Unix())
		}
	})
}
