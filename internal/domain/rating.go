package domain

// Rating is one row of the prepped ratings table. Nullable numeric
// attributes are carried as NaN.
type Rating struct {
	Username        string  `json:"username"`
	BeerName        string  `json:"beer_name"`
	BeerDescription string  `json:"beer_description"`
	ABV             float64 `json:"abv"`
	IBU             float64 `json:"ibu"`
	GlobalRating    float64 `json:"global_rating"`
	UserRating      float64 `json:"user_rating"`
}

// Beer is the catalog view of a rating row, without user columns.
type Beer struct {
	Name         string  `json:"beer_name"`
	Description  string  `json:"beer_description"`
	ABV          float64 `json:"abv"`
	IBU          float64 `json:"ibu"`
	GlobalRating float64 `json:"global_rating"`
}

// DedupRatings drops exact duplicate rows keeping the first occurrence.
// NaN fields compare equal to each other, matching a table-level duplicate check.
func DedupRatings(rs []Rating) []Rating {
	seen := make(map[Rating]struct{}, len(rs))
	out := make([]Rating, 0, len(rs))
	for _, r := range rs {
		k := r.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// key replaces NaN with a sentinel so that map lookups treat NaNs as equal.
func (r Rating) key() Rating {
	r.ABV = nanKey(r.ABV)
	r.IBU = nanKey(r.IBU)
	r.GlobalRating = nanKey(r.GlobalRating)
	r.UserRating = nanKey(r.UserRating)
	return r
}

func nanKey(v float64) float64 {
	if v != v {
		return -1e308
	}
	return v
}

// DedupBeers drops exact duplicate catalog rows keeping the first occurrence.
func DedupBeers(bs []Beer) []Beer {
	seen := make(map[Beer]struct{}, len(bs))
	out := make([]Beer, 0, len(bs))
	for _, b := range bs {
		k := b
		k.ABV, k.IBU, k.GlobalRating = nanKey(b.ABV), nanKey(b.IBU), nanKey(b.GlobalRating)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, b)
	}
	return out
}

// FilterUser returns the rows belonging to username.
func FilterUser(rs []Rating, username string) []Rating {
	var out []Rating
	for _, r := range rs {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out
}
