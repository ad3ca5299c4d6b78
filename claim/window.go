package claim

import "github.com/dentscan/dentclaim/apperr"

// Window is the derived position of one page inside a result set.
type Window struct {
	Limit        int
	PageNumber   int
	StartIndex   int
	CurrentTotal int
	Total        int64
	IsNext       bool
}

// ValidatePage rejects non-positive limit or pageNumber.
func ValidatePage(limit, pageNumber int) error {
	if pageNumber <= 0 {
		return apperr.Validation("Page number can't be zero")
	}
	if limit <= 0 {
		return apperr.Validation("Limit must be greater than zero")
	}
	return nil
}

// NewWindow computes the page window for limit/pageNumber over total rows.
// IsNext is true only when rows exist beyond the last index of this page.
func NewWindow(limit, pageNumber int, total int64) (Window, error) {
	if err := ValidatePage(limit, pageNumber); err != nil {
		return Window{}, err
	}
	w := Window{
		Limit:        limit,
		PageNumber:   pageNumber,
		StartIndex:   limit * (pageNumber - 1),
		CurrentTotal: limit * pageNumber,
		Total:        total,
	}
	w.IsNext = !(int64(w.CurrentTotal) >= total)
	return w, nil
}
