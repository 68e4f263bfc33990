package frame

import "github.com/actuallystonmai/beer-recommender/internal/domain"

// Column names shared by the ratings and catalog frames.
const (
	ColUsername     = "username"
	ColBeerName     = "beer_name"
	ColDescription  = "beer_description"
	ColABV          = "abv"
	ColIBU          = "ibu"
	ColGlobalRating = "global_rating"
	ColUserRating   = "user_rating"
)

// FromRatings builds a frame with one row per rating.
func FromRatings(rs []domain.Rating) *Frame {
	n := len(rs)
	users := make([]string, n)
	beers := make([]string, n)
	descs := make([]string, n)
	abv := make([]float64, n)
	ibu := make([]float64, n)
	global := make([]float64, n)
	target := make([]float64, n)
	for i, r := range rs {
		users[i] = r.Username
		beers[i] = r.BeerName
		descs[i] = r.BeerDescription
		abv[i] = r.ABV
		ibu[i] = r.IBU
		global[i] = r.GlobalRating
		target[i] = r.UserRating
	}
	return New(n).
		AddText(ColUsername, users).
		AddText(ColBeerName, beers).
		AddText(ColDescription, descs).
		AddFloat(ColABV, abv).
		AddFloat(ColIBU, ibu).
		AddFloat(ColGlobalRating, global).
		AddFloat(ColUserRating, target)
}

// FromBeers builds a catalog frame with one row per beer record.
func FromBeers(bs []domain.Beer) *Frame {
	n := len(bs)
	names := make([]string, n)
	descs := make([]string, n)
	abv := make([]float64, n)
	ibu := make([]float64, n)
	global := make([]float64, n)
	for i, b := range bs {
		names[i] = b.Name
		descs[i] = b.Description
		abv[i] = b.ABV
		ibu[i] = b.IBU
		global[i] = b.GlobalRating
	}
	return New(n).
		AddText(ColBeerName, names).
		AddText(ColDescription, descs).
		AddFloat(ColABV, abv).
		AddFloat(ColIBU, ibu).
		AddFloat(ColGlobalRating, global)
}
