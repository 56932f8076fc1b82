package basesvc

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type Level string

type defaultsDoc struct {
	Priority int     `bson:"priority" default:"3"`
	Weight   float64 `bson:"weight" default:"1.5"`
	Active   bool    `bson:"isActive" default:"true"`
	Status   Level   `bson:"status" default:"ready"`
	Name     string  `bson:"name"`
}

func TestApplyInsertDefaultsOnlyFillsZeroFields(t *testing.T) {
	d := defaultsDoc{Priority: 5}
	ApplyInsertDefaults(&d)
	assert.Equal(t, 5, d.Priority)
	assert.Equal(t, 1.5, d.Weight)
	assert.True(t, d.Active)
	assert.Equal(t, Level("ready"), d.Status)
	assert.Equal(t, "", d.Name)
}

func TestDefaultsForType(t *testing.T) {
	defaults := defaultsForType(reflect.TypeOf(defaultsDoc{}))
	assert.Equal(t, 3, defaults["priority"])
	assert.Equal(t, true, defaults["isActive"])
	_, hasName := defaults["name"]
	assert.False(t, hasName)
}
