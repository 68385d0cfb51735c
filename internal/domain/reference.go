package domain

const (
	DefaultBuyer     = "Name & Full Details with KYC required before lifting"
	DefaultQuality   = "As is Where is Basis. No claim."
	DefaultPackaging = "50 Kg PP Bag Approx"
	DefaultPayment   = "Advance Before Lifting"
	DefaultBrokerage = "As Per Kolkata Market Terms"
)

var KnownSellers = []string{
	"Hemraj Industries Pvt. Ltd.",
	"Radheshyam Industries Pvt. Ltd.",
}

var KnownCommodities = []string{
	"Australian Mapte",
	"Canadian Mapte",
	"Canadian Yellow Peas",
	"Russian/Ukrainian Yellow Peas",
	"Australian Red Lentils-Nipper",
	"Australian Red Lentils-Nugget",
	"Canadian Red Lentils-Crimson",
	"Australian Chickpeas",
	"Tanzanian Chickpeas",
	"Indian Desi Chickpeas",
	"Black Matpe- FAQ",
	"Black Matpe- SQ",
	"Pigeon Peas-Lemon",
	"Wheat Milling Quality",
	"Maize",
	"Sugar S-30/S-31",
	"Sugar M-30/M-31",
	"Sugar L-30/L-31",
	"Cumin",
	"Coriander",
	"Turmeric",
	"Rice",
	"Oil",
}
