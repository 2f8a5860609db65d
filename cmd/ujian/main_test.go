package main

import (
	"testing"

	"github.com/pavelanni/ujian/internal/auth"
	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/store"
)

func TestSeedAdmin(t *testing.T) {
	db, err := store.New(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := seedAdmin(db, ""); err == nil {
		t.Fatal("seeding without a password should fail")
	}
	if err := seedAdmin(db, "s3cret"); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	// A second run leaves the existing admin alone.
	if err := seedAdmin(db, "other"); err != nil {
		t.Fatalf("second seedAdmin: %v", err)
	}

	n, err := db.CountUsersByRole(model.UserRoleAdmin)
	if err != nil || n != 1 {
		t.Fatalf("admins = %d, %v; want 1", n, err)
	}
	user, err := auth.NewService(db).Verify(adminUsername, "s3cret")
	if err != nil || !user.IsAdmin() {
		t.Errorf("Verify(admin) = %+v, %v", user, err)
	}
}

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "import", "export"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"addr", "db-driver", "db", "lang", "admin-password", "exam-duration", "idle-timeout", "courses", "secure-cookies", "log-level", "log-format"} {
		if root.Flags().Lookup(flag) == nil {
			t.Errorf("root lacks --%s", flag)
		}
	}
}
