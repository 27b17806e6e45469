package models

import (
	"errors"
	"ifcserver/db"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func initTestDB(t *testing.T) {
	t.Helper()
	instance, err := db.OpenSQLite(filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	db.Instance = instance
	Init()
	t.Cleanup(func() {
		if sqlDB, err := instance.DB(); err == nil {
			sqlDB.Close()
		}
	})
}

func TestModel_CreateListDelete(t *testing.T) {
	initTestDB(t)

	first := Model{Name: "Office", Filename: "a.ifc", OriginalFilename: "office.ifc", Size: 450, MimeType: "application/ifc", CreatedAt: 1000}
	second := Model{Name: "Bridge", Filename: "b.ifc", OriginalFilename: "bridge.ifc", Size: 900, MimeType: "application/ifc", CreatedAt: 2000}
	require.NoError(t, first.Create())
	require.NoError(t, second.Create())
	assert.NotZero(t, first.ID)

	list, err := ListModels()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bridge", list[0].Name, "newest first")

	got, err := GetModel(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "office.ifc", got.OriginalFilename)
	assert.True(t, ModelExists(first.ID))

	require.NoError(t, first.Delete())
	assert.False(t, ModelExists(first.ID))
	_, err = GetModel(first.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestModel_CreatedAtDefaults(t *testing.T) {
	initTestDB(t)

	m := Model{Name: "x", Filename: "x.ifc", OriginalFilename: "x.ifc", MimeType: "application/octet-stream"}
	require.NoError(t, m.Create())
	assert.NotZero(t, m.CreatedAt)
}
