package mutate

import (
	"fmt"
	"io"

	"github.com/gnomegl/wagroups/internal/types"
	"github.com/samber/lo"
)

type PhoneSummary struct {
	Phone      string
	Successful int
	Total      int
}

type Summary struct {
	Total      int
	Successful int
	Failed     int
	PerPhone   []PhoneSummary
}

// Summarize aggregates results; PerPhone follows the order of phones.
func Summarize(results []types.MutationResult, phones []string) Summary {
	s := Summary{
		Total:      len(results),
		Successful: lo.CountBy(results, func(r types.MutationResult) bool { return r.Success }),
	}
	s.Failed = s.Total - s.Successful

	for _, phone := range phones {
		mine := lo.Filter(results, func(r types.MutationResult, _ int) bool { return r.Phone == phone })
		s.PerPhone = append(s.PerPhone, PhoneSummary{
			Phone:      phone,
			Successful: lo.CountBy(mine, func(r types.MutationResult) bool { return r.Success }),
			Total:      len(mine),
		})
	}
	return s
}

func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "\n=== ADD PARTICIPANTS SUMMARY ===")
	fmt.Fprintf(w, "Total operations: %d\n", s.Total)
	fmt.Fprintf(w, "Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)

	fmt.Fprintln(w, "\nSummary by participant:")
	for _, p := range s.PerPhone {
		fmt.Fprintf(w, "  %s: %d/%d successful\n", p.Phone, p.Successful, p.Total)
	}
}
