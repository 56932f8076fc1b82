package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type indexedDoc struct {
	ID        string `bson:"_id,omitempty"`
	Scope     string `bson:"scope" index:"compound:counter_key_unique"`
	ScopeID   string `bson:"scopeId" index:"single:1;compound:counter_key_unique"`
	Window    string `bson:"window" index:"compound:counter_key_unique"`
	Email     string `bson:"email" index:"unique,sparse"`
	CreatedAt int64  `bson:"createdAt" index:"single:-1"`
	Ignored   string `bson:"-" index:"single:1"`
}

func TestBuildIndexModels(t *testing.T) {
	models, err := BuildIndexModels(&indexedDoc{})
	require.NoError(t, err)
	require.Len(t, models, 4)

	byName := map[string]int{}
	for i, m := range models {
		byName[*m.Options.Name] = i
	}

	compound := models[byName["counter_key_unique"]]
	assert.Equal(t, bson.D{{Key: "scope", Value: 1}, {Key: "scopeId", Value: 1}, {Key: "window", Value: 1}}, compound.Keys)
	assert.True(t, *compound.Options.Unique)

	email := models[byName["email_unique"]]
	assert.True(t, *email.Options.Sparse)

	created := models[byName["createdAt_single"]]
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, created.Keys)
}

func TestParseIndexTag(t *testing.T) {
	cfgs := parseIndexTag("single:1;unique,sparse;compound:a_unique")
	require.Len(t, cfgs, 3)
	assert.Equal(t, "1", cfgs[0]["single"])
	_, sparse := cfgs[1]["sparse"]
	assert.True(t, sparse)
	assert.Equal(t, "a_unique", cfgs[2]["compound"])
}
