package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestWithDetailsStillMatchesSentinel(t *testing.T) {
	err := WithDetails(ErrDuplicate, map[string]any{"scopeId": "g1"})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("open rest period: %w", err)
	assert.True(t, errors.Is(wrapped, ErrDuplicate))
}

func TestConvertMongoError(t *testing.T) {
	assert.Nil(t, ConvertMongoError(nil))
	assert.Equal(t, ErrNotFound, ConvertMongoError(mongo.ErrNoDocuments))
	assert.Equal(t, ErrVersionConflict, ConvertMongoError(ErrVersionConflict))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.Equal(t, ErrDuplicate, ConvertMongoError(dup))

	other := ConvertMongoError(errors.New("boom"))
	var appErr *Error
	assert.True(t, errors.As(other, &appErr))
	assert.Equal(t, StatusInternalServerError, appErr.StatusCode)
}
