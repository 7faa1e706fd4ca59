package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAddressTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_id TEXT,
  type TEXT NOT NULL,
  full_name TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT,
  city TEXT NOT NULL,
  region TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  phone TEXT,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{DB: testTxRunner{db: db}, Repo: NewRepository(db)})
	require.NoError(t, err)
	return svc
}

func validInput() Input {
	return Input{
		Type:       "shipping",
		FullName:   "Jordan Example",
		Line1:      "500 Market St",
		City:       "Portland",
		Region:     "OR",
		PostalCode: "97201",
		Country:    "US",
	}
}

func TestValidateInput(t *testing.T) {
	t.Run("accepts a complete address", func(t *testing.T) {
		assert.NoError(t, ValidateInput(validInput()))
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		in := validInput()
		in.Line1 = ""
		err := ValidateInput(in)
		require.Error(t, err)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
		assert.Contains(t, err.Error(), "line1")
	})

	t.Run("rejects non-alpha2 country", func(t *testing.T) {
		in := validInput()
		in.Country = "USA"
		err := ValidateInput(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "country")
	})

	t.Run("rejects malformed phone", func(t *testing.T) {
		phone := "555-1234"
		in := validInput()
		in.Phone = &phone
		err := ValidateInput(in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "phone")
	})

	t.Run("accepts e164 phone", func(t *testing.T) {
		phone := "+15035550100"
		in := validInput()
		in.Phone = &phone
		assert.NoError(t, ValidateInput(in))
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		in := validInput()
		in.Type = "warehouse"
		require.Error(t, ValidateInput(in))
	})
}

func TestCreateAndList(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	identity := types.SessionIdentity(uuid.NewString())

	created, err := svc.Create(ctx, identity, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	rows, err := svc.List(ctx, identity)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "500 Market St", rows[0].Line1)
}

func TestCreateReplacesDefaultPerType(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	identity := types.UserIdentity(uuid.New())

	first := validInput()
	first.IsDefault = true
	firstRow, err := svc.Create(ctx, identity, first)
	require.NoError(t, err)

	second := validInput()
	second.Line1 = "742 Evergreen Terrace"
	second.IsDefault = true
	secondRow, err := svc.Create(ctx, identity, second)
	require.NoError(t, err)

	rows, err := svc.List(ctx, identity)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	defaults := 0
	for _, row := range rows {
		if row.IsDefault {
			defaults++
			assert.Equal(t, secondRow.ID, row.ID)
		}
	}
	assert.Equal(t, 1, defaults)
	assert.NotEqual(t, firstRow.ID, secondRow.ID)
}

func TestGetCrossIdentityIsNotFound(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.SessionIdentity(uuid.NewString())
	stranger := types.SessionIdentity(uuid.NewString())

	created, err := svc.Create(ctx, owner, validInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, created.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDelete(t *testing.T) {
	db := setupAddressTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	identity := types.SessionIdentity(uuid.NewString())

	created, err := svc.Create(ctx, identity, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, identity, created.ID))

	err = svc.Delete(ctx, identity, created.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestSnapshot(t *testing.T) {
	in := validInput()
	snap := SnapshotInput(in)
	assert.Equal(t, in.Line1, snap.Line1)
	assert.Equal(t, in.Country, snap.Country)
}
