// Package region holds the static list of monitored administrative regions.
package region

import (
	"errors"
	"strings"
)

// ErrRegionNotFound is returned when a region name does not resolve.
var ErrRegionNotFound = errors.New("region not found")

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Region is a monitored state or union territory. Centroid is nil when no
// coordinates are known; providers then fall back to name lookups.
type Region struct {
	Name     string
	Centroid *Point
}

// HasCentroid reports whether the region can be looked up by coordinates.
func (r Region) HasCentroid() bool {
	return r.Centroid != nil
}

// Catalog is an immutable, ordered set of regions.
type Catalog struct {
	regions []Region
	byKey   map[string]int
}

// NewCatalog builds a catalog. Order is preserved; later duplicates are dropped.
func NewCatalog(regions []Region) *Catalog {
	c := &Catalog{
		regions: make([]Region, 0, len(regions)),
		byKey:   make(map[string]int, len(regions)),
	}
	for _, r := range regions {
		key := key(r.Name)
		if key == "" {
			continue
		}
		if _, dup := c.byKey[key]; dup {
			continue
		}
		c.byKey[key] = len(c.regions)
		c.regions = append(c.regions, r)
	}
	return c
}

// All returns a copy of the regions in catalog order.
func (c *Catalog) All() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Len returns the number of regions.
func (c *Catalog) Len() int {
	return len(c.regions)
}

// Lookup finds a region by name, ignoring case, spacing and punctuation.
func (c *Catalog) Lookup(name string) (Region, error) {
	if i, ok := c.byKey[key(name)]; ok {
		return c.regions[i], nil
	}
	return Region{}, ErrRegionNotFound
}

// Filter returns a catalog restricted to the named regions. Unknown names
// are skipped.
func (c *Catalog) Filter(names []string) *Catalog {
	var out []Region
	for _, n := range names {
		if r, err := c.Lookup(n); err == nil {
			out = append(out, r)
		}
	}
	return NewCatalog(out)
}

func key(name string) string {
	name = strings.ReplaceAll(strings.ToLower(name), "&", "and")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func at(lat, lon float64) *Point {
	return &Point{Lat: lat, Lon: lon}
}

// Default returns the Indian states and union territories with approximate centroids.
func Default() *Catalog {
	return NewCatalog([]Region{
		{Name: "Andhra Pradesh", Centroid: at(15.9129, 79.7400)},
		{Name: "Arunachal Pradesh", Centroid: at(28.2180, 94.7278)},
		{Name: "Assam", Centroid: at(26.2006, 92.9376)},
		{Name: "Bihar", Centroid: at(25.0961, 85.3131)},
		{Name: "Chhattisgarh", Centroid: at(21.2787, 81.8661)},
		{Name: "Goa", Centroid: at(15.2993, 74.1240)},
		{Name: "Gujarat", Centroid: at(22.2587, 71.1924)},
		{Name: "Haryana", Centroid: at(29.0588, 76.0856)},
		{Name: "Himachal Pradesh", Centroid: at(31.1048, 77.1734)},
		{Name: "Jharkhand", Centroid: at(23.6102, 85.2799)},
		{Name: "Karnataka", Centroid: at(15.3173, 75.7139)},
		{Name: "Kerala", Centroid: at(10.8505, 76.2711)},
		{Name: "Madhya Pradesh", Centroid: at(22.9734, 78.6569)},
		{Name: "Maharashtra", Centroid: at(19.7515, 75.7139)},
		{Name: "Manipur", Centroid: at(24.6637, 93.9063)},
		{Name: "Meghalaya", Centroid: at(25.4670, 91.3662)},
		{Name: "Mizoram", Centroid: at(23.1645, 92.9376)},
		{Name: "Nagaland", Centroid: at(26.1584, 94.5624)},
		{Name: "Odisha", Centroid: at(20.9517, 85.0985)},
		{Name: "Punjab", Centroid: at(31.1471, 75.3412)},
		{Name: "Rajasthan", Centroid: at(27.0238, 74.2179)},
		{Name: "Sikkim", Centroid: at(27.5330, 88.5122)},
		{Name: "Tamil Nadu", Centroid: at(11.1271, 78.6569)},
		{Name: "Telangana", Centroid: at(18.1124, 79.0193)},
		{Name: "Tripura", Centroid: at(23.9408, 91.9882)},
		{Name: "Uttar Pradesh", Centroid: at(26.8467, 80.9462)},
		{Name: "Uttarakhand", Centroid: at(30.0668, 79.0193)},
		{Name: "West Bengal", Centroid: at(22.9868, 87.8550)},
		{Name: "Andaman and Nicobar Islands", Centroid: at(11.7401, 92.6586)},
		{Name: "Chandigarh", Centroid: at(30.7333, 76.7794)},
		{Name: "Dadra and Nagar Haveli and Daman and Diu", Centroid: at(20.3974, 72.8328)},
		{Name: "Delhi", Centroid: at(28.7041, 77.1025)},
		{Name: "Jammu and Kashmir", Centroid: at(33.7782, 76.5762)},
		{Name: "Ladakh", Centroid: at(34.1526, 77.5771)},
		{Name: "Lakshadweep", Centroid: at(10.5667, 72.6417)},
		{Name: "Puducherry", Centroid: at(11.9416, 79.8083)},
	})
}
