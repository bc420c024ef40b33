package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := OpenDB("")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{"post", postKey("p1"), "post:p1"},
		{"slug", slugKey("hello-world"), "slug:hello-world"},
		{"comment", commentKey("p1", "c1"), "comment:p1:c1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(tt.got))
		})
	}
}

func TestMarshalEntity(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
	}

	data, err := marshalEntity(entity{Name: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x"}`, string(data))

	var out entity
	require.NoError(t, unmarshalEntity(data, &out))
	assert.Equal(t, "x", out.Name)

	assert.Error(t, unmarshalEntity([]byte("{"), &out))
}

func TestOpenDBOnDisk(t *testing.T) {
	db, err := OpenDB(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}
