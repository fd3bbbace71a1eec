package discover

import (
	"cmp"
	"slices"

	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/shared/geo"
)

type place struct {
	content.Destination
	point geo.Point
}

var catalogue = []place{
	{
		Destination: content.Destination{
			Name:        "Mount Everest Base Camp",
			Location:    "Solukhumbu",
			Description: "Challenge yourself with an unforgettable trek to the base of the world's tallest peak. Witness awe-inspiring Himalayan vistas and immerse yourself in Sherpa culture.",
			Image:       "https://placehold.co/400x300/0d0d0d/ffffff?text=Everest",
			Tags:        []string{string(content.TagTrending), string(content.TagAIPick)},
		},
		point: geo.Point{Lat: 28.0026, Lng: 86.8528},
	},
	{
		Destination: content.Destination{
			Name:        "Pokhara Valley",
			Location:    "Gandaki Province",
			Description: "Discover the tranquil beauty of Phewa Lake, perfectly reflecting the Annapurna mountain range. A paradise for nature lovers and adventure seekers.",
			Image:       "https://placehold.co/400x300/0d0d0d/ffffff?text=Pokhara",
			Tags:        []string{string(content.TagTrending)},
		},
		point: geo.Point{Lat: 28.2096, Lng: 83.9856},
	},
	{
		Destination: content.Destination{
			Name:        "Kathmandu Durbar Square",
			Location:    "Kathmandu",
			Description: "Step back in time at this UNESCO World Heritage site. Explore intricate Newari architecture, ancient royal palaces, and living temples bustling with devotees.",
			Image:       "https://placehold.co/400x300/0d0d0d/ffffff?text=Kathmandu",
			Tags:        []string{string(content.TagAIPick)},
		},
		point: geo.Point{Lat: 27.7045, Lng: 85.3077},
	},
}

var exampleTrips = []content.TripIdea{
	{Title: "Kathmandu Spiritual Retreat", Prompt: "A 10-day luxury spiritual retreat in the Kathmandu valley, focusing on yoga, meditation, and ancient temples."},
	{Title: "Trek, Raft and Safari", Prompt: "An adventurous 7-day trek for a group of 4 fit beginners, including rafting and wildlife safari. Budget-friendly."},
	{Title: "Pokhara With Kids", Prompt: "Family-friendly 5-day trip to Pokhara, with easy hikes, boating, and cultural experiences for kids under 10."},
	{Title: "Solo Heritage and Peaks", Prompt: "Solo female traveler's 14-day itinerary covering both cultural heritage sites and a moderate trek with great mountain views."},
}

var defaultHero = content.HeroContent{
	Title:       "Discover Nepal",
	Description: "AI-powered travel companion for your adventure",
	Image:       "https://placehold.co/400x200/0d0d0d/14b8a6?text=Discover+Nepal",
}

type Hotline struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

var hotlines = []Hotline{
	{Name: "Police", Phone: "100"},
	{Name: "Ambulance", Phone: "102"},
	{Name: "Tourist Police", Phone: "1144"},
}

// Destinations returns the static catalogue, nearest first when near is set.
func Destinations(near *geo.Point) []content.Destination {
	places := slices.Clone(catalogue)
	if near != nil {
		slices.SortStableFunc(places, func(a, b place) int {
			return cmp.Compare(near.DistanceKm(a.point), near.DistanceKm(b.point))
		})
	}
	out := make([]content.Destination, 0, len(places))
	for _, p := range places {
		d := p.Destination
		d.Tags = slices.Clone(d.Tags)
		out = append(out, d)
	}
	return out
}
