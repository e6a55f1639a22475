package model

// Seat is a single position in a vehicle layout.  Seat numbers are
// assigned row by row starting at 1; RowLabel uses spreadsheet style
// letters (A, B, ... Z, AA) and Column is 1-based within the row.
type Seat struct {
	Number   int    `json:"seatNumber"`
	RowLabel string `json:"row"`
	Column   int    `json:"column"`
}

// SeatLayout expands totalSeats into a row-major seat map with cols seats
// per row.  A non-positive cols places every seat in a single row.
func SeatLayout(totalSeats, cols int) []Seat {
	if totalSeats <= 0 {
		return []Seat{}
	}
	if cols <= 0 {
		cols = totalSeats
	}
	out := make([]Seat, 0, totalSeats)
	for n := 1; n <= totalSeats; n++ {
		idx := n - 1
		out = append(out, Seat{
			Number:   n,
			RowLabel: RowLabel(idx / cols),
			Column:   idx%cols + 1,
		})
	}
	return out
}

// RowLabel converts a zero-based row index to an alphabetical label like A, B, AA.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
