package api

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuery_ChainingAppendsInOrder(t *testing.T) {
	q := NewQuery()
	same := q.Equal("status", StatusPending).In("asset.product.id", "P1", "P2")
	require.Same(t, q, same)

	filters := q.Filters()
	require.Equal(t, []Filter{
		{Field: "status", Op: OpEqual, Values: []string{"pending"}},
		{Field: "asset.product.id", Op: OpIn, Values: []string{"P1", "P2"}},
	}, filters)
}

func TestQuery_NoDeduplication(t *testing.T) {
	q := NewQuery().Equal("status", "pending").Equal("status", "pending").Set("status", "draft")
	require.Equal(t, 3, q.Len())
	require.Equal(t, OpSet, q.Filters()[2].Op)
}

func TestQuery_FiltersReturnsCopy(t *testing.T) {
	q := NewQuery().In("asset.product.id", "P1")
	filters := q.Filters()
	filters[0].Values[0] = "tampered"

	require.Equal(t, 1, q.Len())
	require.Equal(t, "P1", q.Filters()[0].Values[0])
}

func TestQuery_CloneIsIndependent(t *testing.T) {
	q := NewQuery().Equal("status", "pending")
	c := q.Clone()
	q.Equal("asset.id", "AS-1")

	require.Equal(t, 1, c.Len())
	require.Equal(t, 2, q.Len())
}

func TestQuery_Encode(t *testing.T) {
	q := NewQuery().
		In("asset.product.id", "P1", "P2").
		Equal("asset.product.id__in", "P3,P4").
		Set("status", StatusPending)

	values, err := url.ParseQuery(q.Encode())
	require.NoError(t, err)
	require.Equal(t, []string{"P1,P2", "P3,P4"}, values["asset.product.id__in"])
	require.Equal(t, []string{"pending"}, values["status"])

	require.Equal(t, "asset.product.id__in=P1,P2&asset.product.id__in=P3,P4&status=pending", q.String())
}

func TestQuery_InKeepsExistingSuffix(t *testing.T) {
	f := Filter{Field: "asset.product.id__in", Op: OpIn, Values: []string{"P1"}}
	require.Equal(t, "asset.product.id__in", f.Key())
}

func TestQuery_NilIsEmpty(t *testing.T) {
	var q *Query
	require.Equal(t, 0, q.Len())
	require.Empty(t, q.Filters())
	require.Equal(t, "", q.String())
}

func TestQuery_ValueStringification(t *testing.T) {
	q := NewQuery().Equal("limit", 10).Equal("flag", true).Equal("list", []string{"a", "b"}).Equal("none", nil)
	got := q.Filters()
	require.Equal(t, "10", got[0].Value())
	require.Equal(t, "true", got[1].Value())
	require.Equal(t, "a,b", got[2].Value())
	require.Equal(t, "", got[3].Value())
}
