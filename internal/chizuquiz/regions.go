package chizuquiz

import "github.com/playperu/chizuquiz/internal/geo"

// JapanBounds covers Okinawa's south-west corner to Hokkaido's north-east.
var JapanBounds = geo.Bounds{MinLat: 20, MaxLat: 46, MinLng: 122, MaxLng: 154}

// DefaultRegions is the starter pool, simplified for young children.
func DefaultRegions() []Region {
	return []Region{
		{ID: "r-hokkaido", Name: "ほっかいどう", Coords: geo.Point{Lat: 43.0, Lng: 142.0}, Hint: "さむいところ"},
		{ID: "r-tokyo", Name: "とうきょう", Coords: geo.Point{Lat: 35.7, Lng: 139.7}, Hint: "スカイツリーがあるよ"},
		{ID: "r-osaka", Name: "おおさか", Coords: geo.Point{Lat: 34.7, Lng: 135.5}, Hint: "たこやきのまち"},
		{ID: "r-miyagi", Name: "みやぎ", Coords: geo.Point{Lat: 38.3, Lng: 140.9}, Hint: "ぎゅうたんがゆうめい"},
	}
}
