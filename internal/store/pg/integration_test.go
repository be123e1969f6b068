package pg

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"assetdesk.org/internal/inventory"
	"assetdesk.org/internal/migrate"
)

// setupTestDB starts PostgreSQL in a container and applies migrations and seeds.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION is not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("assetdesk_test"),
		postgres.WithUsername("assetdesk"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	url, err := migrate.URL(dsn)
	if err != nil {
		t.Fatalf("migrate url: %v", err)
	}
	mgr := migrate.NewManager(store.DB(), url)
	if err := mgr.Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if err := mgr.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestPostgresServicesEndToEnd(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	svc := inventory.NewServices(store, nil, 0, inventory.WithPasswordCost(bcrypt.MinCost))

	cats, err := svc.Categories.List(ctx, inventory.Page{})
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) == 0 {
		t.Fatal("expected seeded categories")
	}

	dept, err := svc.Departments.Create(ctx, inventory.DepartmentInput{Name: "IT", Code: "IT"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	got, err := svc.Departments.Get(ctx, dept.ID)
	if err != nil {
		t.Fatalf("get department: %v", err)
	}
	if !got.CreatedAt.Equal(dept.CreatedAt) || got.Name != "IT" {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, dept)
	}

	price := decimal.RequireFromString("1499.95")
	asset, err := svc.Assets.Create(ctx, inventory.AssetInput{
		AssetNumber:   "SRV-001",
		Name:          "db01",
		CategoryID:    &cats[0].ID,
		AssetType:     cats[0].AssetType,
		PurchasePrice: decimal.NewNullDecimal(price),
		DepartmentID:  &dept.ID,
	})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	stored, err := svc.Assets.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if !stored.PurchasePrice.Valid || !stored.PurchasePrice.Decimal.Equal(price) {
		t.Fatalf("price did not round trip: %v", stored.PurchasePrice)
	}
	if stored.Status != inventory.StatusActive {
		t.Fatalf("unexpected status %q", stored.Status)
	}

	// The foreign key backs up the service-level restrict check.
	err = store.InTx(ctx, func(tx inventory.Tx) error {
		return tx.Departments().Delete(ctx, dept.ID)
	})
	if !errors.Is(err, inventory.ErrInUse) {
		t.Fatalf("expected ErrInUse from foreign key, got %v", err)
	}

	// So does the unique index behind the pre-check.
	err = store.InTx(ctx, func(tx inventory.Tx) error {
		d := inventory.Department{Name: "Other", Code: "IT", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
		return tx.Departments().Insert(ctx, &d)
	})
	if !errors.Is(err, inventory.ErrConflict) {
		t.Fatalf("expected ErrConflict from unique index, got %v", err)
	}
}
