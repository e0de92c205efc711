package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/pg"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&MessageEntity{},
		&GatewayEntity{},
		&AccountEntity{},
		&SenderIDEntity{},
		&OptOutEntity{},
		&RateEntity{},
		&PrefixEntity{},
	)
	require.NoError(t, err)

	return &testDB{
		DB:    pg.NewFromGorm(db, db),
		rawDB: db,
	}
}
