// Package reconcile holds the cart merge rule shared by the server and the
// client library: two line sets are combined by product, summing quantities.
package reconcile

// Line is a product reference with a quantity.
type Line struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// Change describes what merging one source product does to the target.
type Change struct {
	ProductID string
	// Delta is the quantity contributed by the source.
	Delta int
	// Result is the target quantity after the merge.
	Result int
	// Existing is true when the target already held the product.
	Existing bool
}

// Normalize drops malformed lines (empty product, qty < 1) and folds
// duplicates into a single line, keeping first-seen order.
func Normalize(lines []Line) []Line {
	if len(lines) == 0 {
		return nil
	}

	index := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Qty < 1 {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Qty += l.Qty
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Plan computes one Change per product of the normalized source. The target
// is read as-is; it is never decremented.
func Plan(source, target []Line) []Change {
	src := Normalize(source)
	if len(src) == 0 {
		return nil
	}

	current := make(map[string]int, len(target))
	for _, l := range target {
		current[l.ProductID] += l.Qty
	}

	changes := make([]Change, 0, len(src))
	for _, l := range src {
		existing, ok := current[l.ProductID]
		changes = append(changes, Change{
			ProductID: l.ProductID,
			Delta:     l.Qty,
			Result:    existing + l.Qty,
			Existing:  ok,
		})
	}
	return changes
}

// Merge returns the combined line set: target products first in their
// existing order, then products only the source holds, in source order.
func Merge(source, target []Line) []Line {
	changes := Plan(source, target)

	byProduct := make(map[string]Change, len(changes))
	for _, c := range changes {
		byProduct[c.ProductID] = c
	}

	sums := make(map[string]int, len(target))
	order := make([]string, 0, len(target))
	for _, l := range target {
		if _, ok := sums[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		sums[l.ProductID] += l.Qty
	}

	out := make([]Line, 0, len(order)+len(changes))
	for _, id := range order {
		out = append(out, Line{ProductID: id, Qty: sums[id] + byProduct[id].Delta})
	}
	for _, c := range changes {
		if !c.Existing {
			out = append(out, Line{ProductID: c.ProductID, Qty: c.Result})
		}
	}
	return out
}

// Quantity reports the summed quantity of productID in lines.
func Quantity(lines []Line, productID string) int {
	total := 0
	for _, l := range lines {
		if l.ProductID == productID {
			total += l.Qty
		}
	}
	return total
}
