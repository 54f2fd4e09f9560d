package service_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrail/internal/domain"
	"github.com/mtlprog/tasktrail/internal/service"
)

func TestNormalizeSearch(t *testing.T) {
	tests := []struct {
		name string
		in   service.SearchParams
		want domain.SearchQuery
	}{
		{"defaults", service.SearchParams{}, domain.SearchQuery{Page: 1, PageSize: 20}},
		{"trims query", service.SearchParams{Query: "  milk \t"}, domain.SearchQuery{Text: "milk", Page: 1, PageSize: 20}},
		{"keeps paging", service.SearchParams{Page: 3, PageSize: 5}, domain.SearchQuery{Page: 3, PageSize: 5}},
		{"caps page size", service.SearchParams{PageSize: 1000}, domain.SearchQuery{Page: 1, PageSize: service.MaxPageSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.NormalizeSearch(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSearch_PageTooLarge(t *testing.T) {
	_, err := service.NormalizeSearch(service.SearchParams{Page: math.MaxInt})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "page", verr.Field)

	q, err := service.NormalizeSearch(service.SearchParams{Page: math.MaxInt / service.MaxPageSize, PageSize: 1000})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, q.Offset(), 0)
}

func TestNormalizeSearch_Negative(t *testing.T) {
	_, err := service.NormalizeSearch(service.SearchParams{PageSize: -5})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
