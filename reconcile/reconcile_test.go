package reconcile_test

import (
	"testing"

	"shopcart-service/reconcile"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_DropsMalformedAndFoldsDuplicates(t *testing.T) {
	got := reconcile.Normalize([]reconcile.Line{
		{ProductID: "a", Qty: 1},
		{ProductID: "", Qty: 3},
		{ProductID: "b", Qty: 0},
		{ProductID: "c", Qty: -2},
		{ProductID: "a", Qty: 2},
		{ProductID: "d", Qty: 1},
	})

	assert.Equal(t, []reconcile.Line{{ProductID: "a", Qty: 3}, {ProductID: "d", Qty: 1}}, got)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Nil(t, reconcile.Normalize(nil))
	assert.Empty(t, reconcile.Normalize([]reconcile.Line{{ProductID: "", Qty: 1}}))
}

func TestPlan_MarksExistingAndNew(t *testing.T) {
	target := []reconcile.Line{{ProductID: "a", Qty: 2}}
	source := []reconcile.Line{{ProductID: "a", Qty: 1}, {ProductID: "b", Qty: 4}}

	changes := reconcile.Plan(source, target)

	assert.Equal(t, []reconcile.Change{
		{ProductID: "a", Delta: 1, Result: 3, Existing: true},
		{ProductID: "b", Delta: 4, Result: 4, Existing: false},
	}, changes)
}

func TestPlan_EmptySourceIsNoop(t *testing.T) {
	assert.Empty(t, reconcile.Plan(nil, []reconcile.Line{{ProductID: "a", Qty: 2}}))
}

func TestMerge_SumsQuantitiesByProduct(t *testing.T) {
	cases := []struct {
		name   string
		source []reconcile.Line
		target []reconcile.Line
	}{
		{
			name:   "disjoint",
			source: []reconcile.Line{{ProductID: "a", Qty: 1}},
			target: []reconcile.Line{{ProductID: "b", Qty: 2}},
		},
		{
			name:   "overlapping",
			source: []reconcile.Line{{ProductID: "a", Qty: 1}, {ProductID: "b", Qty: 5}},
			target: []reconcile.Line{{ProductID: "b", Qty: 2}, {ProductID: "c", Qty: 7}},
		},
		{
			name:   "empty target",
			source: []reconcile.Line{{ProductID: "a", Qty: 3}},
		},
		{
			name:   "empty source",
			target: []reconcile.Line{{ProductID: "a", Qty: 3}},
		},
		{
			name:   "duplicates on both sides",
			source: []reconcile.Line{{ProductID: "a", Qty: 1}, {ProductID: "a", Qty: 1}},
			target: []reconcile.Line{{ProductID: "a", Qty: 2}, {ProductID: "a", Qty: 3}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			merged := reconcile.Merge(tc.source, tc.target)

			products := map[string]bool{}
			for _, l := range tc.source {
				products[l.ProductID] = true
			}
			for _, l := range tc.target {
				products[l.ProductID] = true
			}

			for p := range products {
				want := reconcile.Quantity(tc.source, p) + reconcile.Quantity(tc.target, p)
				assert.Equal(t, want, reconcile.Quantity(merged, p), "product %s", p)
			}
			for _, l := range merged {
				assert.True(t, products[l.ProductID], "unexpected product %s", l.ProductID)
			}

			seen := map[string]bool{}
			for _, l := range merged {
				assert.False(t, seen[l.ProductID], "product %s appears twice", l.ProductID)
				seen[l.ProductID] = true
			}
		})
	}
}

func TestMerge_PreservesTargetOrderThenSourceOrder(t *testing.T) {
	merged := reconcile.Merge(
		[]reconcile.Line{{ProductID: "z", Qty: 1}, {ProductID: "b", Qty: 1}, {ProductID: "y", Qty: 2}},
		[]reconcile.Line{{ProductID: "b", Qty: 1}, {ProductID: "a", Qty: 1}},
	)

	assert.Equal(t, []reconcile.Line{
		{ProductID: "b", Qty: 2},
		{ProductID: "a", Qty: 1},
		{ProductID: "z", Qty: 1},
		{ProductID: "y", Qty: 2},
	}, merged)
}

func TestMerge_IgnoresMalformedSourceLines(t *testing.T) {
	target := []reconcile.Line{{ProductID: "a", Qty: 2}}

	merged := reconcile.Merge([]reconcile.Line{{ProductID: "a", Qty: 0}, {ProductID: "", Qty: 4}}, target)

	assert.Equal(t, target, merged)
}
