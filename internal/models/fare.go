package models

// Fare pricing constants. The pool discount grows with every passenger
// beyond the first and is capped at 40%.
const (
	BaseFare             = 50.0
	PerKMRate            = 12.0
	DiscountPerPassenger = 0.10
	MaxPoolDiscount      = 0.40
	DefaultCurrency      = "USD"
)

type Fare struct {
	BaseFare         float64 `json:"base_fare" bson:"base_fare"`
	DistanceFare     float64 `json:"distance_fare" bson:"distance_fare"`
	TotalFare        float64 `json:"total_fare" bson:"total_fare"`
	Discount         float64 `json:"discount" bson:"discount"` // fraction of total, 0..0.4
	SharedFare       float64 `json:"shared_fare" bson:"shared_fare"`
	FarePerPassenger float64 `json:"fare_per_passenger" bson:"fare_per_passenger"`
	Currency         string  `json:"currency" bson:"currency"`
}

// CalculateFare prices a ride for the given distance and splits it across
// passengers. Computed once at creation and never rebalanced when pool
// membership changes afterwards.
func CalculateFare(distanceKM float64, passengerCount int) *Fare {
	if passengerCount < 1 {
		passengerCount = 1
	}

	distanceFare := distanceKM * PerKMRate
	totalFare := BaseFare + distanceFare

	discount := 0.0
	if passengerCount > 1 {
		discount = DiscountPerPassenger * float64(passengerCount-1)
		if discount > MaxPoolDiscount {
			discount = MaxPoolDiscount
		}
	}

	sharedFare := totalFare * (1 - discount)

	return &Fare{
		BaseFare:         BaseFare,
		DistanceFare:     distanceFare,
		TotalFare:        totalFare,
		Discount:         discount,
		SharedFare:       sharedFare,
		FarePerPassenger: sharedFare / float64(passengerCount),
		Currency:         DefaultCurrency,
	}
}
