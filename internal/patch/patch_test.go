package patch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	Date Value[time.Time] `json:"date"`
	Note Value[string]    `json:"note"`
}

func TestUnmarshal_ThreeStates(t *testing.T) {
	var u update
	require.NoError(t, json.Unmarshal([]byte(`{"date": null, "note": "ring the bell"}`), &u))

	assert.True(t, u.Date.IsClear())
	assert.True(t, u.Note.IsSet())
	note, ok := u.Note.Get()
	assert.True(t, ok)
	assert.Equal(t, "ring the bell", note)

	var empty update
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.True(t, empty.Date.IsUnchanged())
	assert.True(t, empty.Note.IsUnchanged())
}

func TestUnmarshal_BadValue(t *testing.T) {
	var u update
	assert.Error(t, json.Unmarshal([]byte(`{"date": "tomorrow"}`), &u))
}

func TestApply(t *testing.T) {
	original := "keep"
	dst := &original

	Value[string]{}.Apply(&dst)
	require.NotNil(t, dst)
	assert.Equal(t, "keep", *dst)

	Set("new").Apply(&dst)
	require.NotNil(t, dst)
	assert.Equal(t, "new", *dst)
	assert.Equal(t, "keep", original)

	Clear[string]().Apply(&dst)
	assert.Nil(t, dst)
}

func TestColumn(t *testing.T) {
	_, ok := Value[int]{}.Column()
	assert.False(t, ok)

	v, ok := Set(3).Column()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = Clear[int]().Column()
	assert.True(t, ok)
	assert.Nil(t, v)
}
