package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCreated(t *testing.T) {
	ts := float64(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC).Unix())

	expected := time.Unix(int64(ts), 0).Local().Format("2006-01-02T15:04:05")
	assert.Equal(t, expected, FormatCreated(ts))
	assert.Len(t, FormatCreated(ts+0.75), len("2006-01-02T15:04:05"))
}

func TestFullnames(t *testing.T) {
	assert.Equal(t, "t3_abc", Post{ID: "abc"}.Fullname())
	assert.True(t, Comment{ParentID: "t3_abc"}.IsTopLevel())
	assert.False(t, Comment{ParentID: "t1_def"}.IsTopLevel())
	assert.False(t, Comment{}.IsTopLevel())
}
