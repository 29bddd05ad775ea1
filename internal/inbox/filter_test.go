package inbox

import (
	"testing"

	"learnhub/internal/shared"

	"github.com/stretchr/testify/assert"
)

func TestApply(t *testing.T) {
	list := []Notification{
		{ID: "1", CreatedAt: at(3)},
		{ID: "2", CreatedAt: at(2), ReadAt: readAt(2)},
		{ID: "3", CreatedAt: at(1)},
	}

	tests := []struct {
		filter shared.NotificationFilter
		want   []string
	}{
		{shared.FilterAll, []string{"1", "2", "3"}},
		{shared.FilterUnread, []string{"1", "3"}},
		{shared.FilterRead, []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(list, tt.filter)))
		})
	}

	// input untouched
	assert.Equal(t, []string{"1", "2", "3"}, ids(list))
}

func TestApply_Empty(t *testing.T) {
	assert.Empty(t, Apply(nil, shared.FilterUnread))
	assert.Zero(t, CountUnread(nil))
}

func TestCountUnread(t *testing.T) {
	list := []Notification{
		{ID: "1"},
		{ID: "2", ReadAt: readAt(1)},
		{ID: "3"},
	}
	assert.Equal(t, 2, CountUnread(list))
	assert.Equal(t, len(Apply(list, shared.FilterUnread)), CountUnread(list))
}

func TestNormalize_StableNewestFirst(t *testing.T) {
	list := []Notification{
		{ID: "a", CreatedAt: at(1)},
		{ID: "b", CreatedAt: at(2)},
		{ID: "c", CreatedAt: at(2)},
		{ID: "d", CreatedAt: at(0), DeletedAt: readAt(5)},
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids(normalize(list)))
}
