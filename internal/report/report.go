// Package report renders optimizer results and failures for the console.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/aristath/blendopt/internal/modules/blend"
	"github.com/aristath/blendopt/internal/modules/prices"
)

const header = "--- Optimal Portfolio (Minimum Variance Strategy) ---"

// Write prints the split between the two suppliers and the minimum variance
func Write(w io.Writer, r blend.Result) error {
	_, err := fmt.Fprintf(w,
		"%s\nOptimal percentage from Supplier A: %s\nOptimal percentage from Supplier B: %s\nResulting Minimum Cost Variance: %.2f\n",
		header, Percent(r.Weight), Percent(1-r.Weight), r.MinVariance)
	return err
}

// Percent formats a fraction as a whole percentage, e.g. 0.37 -> "37%"
func Percent(fraction float64) string {
	return fmt.Sprintf("%.0f%%", fraction*100)
}

// Describe turns a failure into the message shown to the user. A missing
// price source gets its own message; anything else is reported with its
// error text.
func Describe(source string, err error) string {
	if errors.Is(err, prices.ErrSourceNotFound) {
		return fmt.Sprintf("Error: `%s` not found.", source)
	}
	return fmt.Sprintf("An unexpected error occurred: %v", err)
}
