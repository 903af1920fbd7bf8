package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPageRequestDefaults(t *testing.T) {
	req, err := NewPageRequest(0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, req.Page)
	require.Equal(t, DefaultPageSize, req.Size)
	require.Equal(t, 0, req.Offset())
}

func TestNewPageRequestBounds(t *testing.T) {
	cases := []struct {
		page, size int
	}{
		{-1, 20},
		{1, -5},
		{1, MaxPageSize + 1},
	}
	for _, tc := range cases {
		_, err := NewPageRequest(tc.page, tc.size)
		require.Error(t, err, "page=%d size=%d", tc.page, tc.size)
		require.True(t, errors.Is(err, ErrInvalidCriteria))
	}

	req, err := NewPageRequest(3, MaxPageSize)
	require.NoError(t, err)
	require.Equal(t, 2*MaxPageSize, req.Offset())
}

func TestNewPagePageCount(t *testing.T) {
	cases := []struct {
		total, size, pages int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 7, 15},
	}
	for _, tc := range cases {
		req, err := NewPageRequest(1, tc.size)
		require.NoError(t, err)
		page := NewPage([]int{}, tc.total, req)
		require.Equal(t, tc.pages, page.Pages, "total=%d size=%d", tc.total, tc.size)
	}
}

func TestNewPageNilItems(t *testing.T) {
	req, err := NewPageRequest(5, 10)
	require.NoError(t, err)
	page := NewPage[string](nil, 12, req)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
	require.Equal(t, 12, page.Total)
	require.Equal(t, 2, page.Pages)
	require.Equal(t, 5, page.Page)
}
