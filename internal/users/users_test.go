package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/stores/jsondb"
)

func newTestConf(t *testing.T) *Conf {
	t.Helper()
	store, err := jsondb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	c, err := NewConf(store)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}
	return c
}

func TestRegisterDuplicateEmail(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	nu := NewUser{Email: "ada@example.com", Name: "Ada", Password: "secret1"}
	if _, err := c.Register(ctx, nu); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := c.Register(ctx, nu); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("second Register: got %v, want ErrEmailTaken", err)
	}
}

func TestConcurrentRegistrationsAdmitOne(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Register(ctx, NewUser{Email: "ada@example.com", Name: "Ada", Password: "secret1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, taken := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrEmailTaken):
			taken++
		default:
			t.Fatalf("Register: %v", err)
		}
	}
	if ok != 1 || taken != attempts-1 {
		t.Errorf("got %d successes and %d duplicates, want 1 and %d", ok, taken, attempts-1)
	}
}

func TestDuplicateCheckIsCaseSensitive(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	if _, err := c.Register(ctx, NewUser{Email: "ada@example.com", Name: "Ada", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// The exact-match semantics treat a different casing as a new email.
	if _, err := c.Register(ctx, NewUser{Email: "Ada@example.com", Name: "Ada", Password: "secret1"}); err != nil {
		t.Errorf("Register with different casing: %v", err)
	}
}

func TestLogin(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	created, err := c.Register(ctx, NewUser{Email: "ada@example.com", Name: "Ada", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if created.IsAdmin {
		t.Error("registration produced an admin user")
	}

	u, err := c.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("logged-in id = %s, want %s", u.ID, created.ID)
	}

	if _, err := c.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := c.Login(ctx, "ghost@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	created, err := c.EnsureAdmin(ctx, "admin@example.com", "Admin", "admin123")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if !created {
		t.Fatal("EnsureAdmin did not create the account")
	}

	again, err := c.EnsureAdmin(ctx, "admin@example.com", "Admin", "admin123")
	if err != nil {
		t.Fatalf("second EnsureAdmin: %v", err)
	}
	if again {
		t.Error("EnsureAdmin recreated an existing account")
	}

	u, err := c.Login(ctx, "admin@example.com", "admin123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if !u.IsAdmin {
		t.Error("seeded admin is not flagged as admin")
	}
}
