package monthly

import (
	"fmt"
	"math"
	"math/rand"
)

var (
	cities  = []string{"São Paulo", "Rio de Janeiro", "Salvador", "Fortaleza", "Recife"}
	regions = map[string]string{
		"São Paulo":      "Sudeste",
		"Rio de Janeiro": "Sudeste",
		"Salvador":       "Nordeste",
		"Fortaleza":      "Nordeste",
		"Recife":         "Nordeste",
	}
	extraCosts = []float64{0, 0, 0, 150, 0, 1200}
)

// Generator produces a reproducible month of operations for a fixed seed.
type Generator struct {
	rnd           *rand.Rand
	propertyCount int
}

func NewGenerator(seed int64, propertyCount int) *Generator {
	if propertyCount <= 0 {
		propertyCount = 30
	}
	return &Generator{
		rnd:           rand.New(rand.NewSource(seed)),
		propertyCount: propertyCount,
	}
}

func (g *Generator) Simulate(month string) (Dataset, error) {
	if _, err := ParseMonth(month); err != nil {
		return Dataset{}, err
	}

	dataset := Dataset{
		Month:      month,
		Properties: make([]Property, 0, g.propertyCount),
		Bookings:   make([]Booking, 0, g.propertyCount),
		Financials: make([]Financial, 0, g.propertyCount),
		Feedbacks:  make([]Feedback, 0, g.propertyCount),
	}

	for i := 1; i <= g.propertyCount; i++ {
		propertyID := fmt.Sprintf("P%04d", i)
		city := pickOne(g.rnd, cities)
		dataset.Properties = append(dataset.Properties, Property{
			PropertyID: propertyID,
			OwnerName:  fmt.Sprintf("Owner %d", i),
			City:       city,
			State:      "BR",
			Region:     regions[city],
			Status:     "active",
		})

		reservations := g.rnd.Intn(26)
		gross := 0.0
		if reservations > 0 {
			gross = round2(1000 + g.rnd.Float64()*14000)
		}
		dataset.Bookings = append(dataset.Bookings, Booking{
			PropertyID:      propertyID,
			Month:           month,
			NumReservations: reservations,
			OccupiedDays:    g.rnd.Intn(26),
			GrossRevenue:    gross,
		})

		fee := PlatformFeePct(city)
		extra := extraCosts[g.rnd.Intn(len(extraCosts))]
		net := round2(gross - gross*fee/100 - extra)
		dataset.Financials = append(dataset.Financials, Financial{
			PropertyID:     propertyID,
			Month:          month,
			PlatformFeePct: fee,
			ExtraCost:      extra,
			GrossRevenue:   gross,
			NetRevenue:     net,
			MarginPct:      marginPct(net, gross),
		})

		var rating *float64
		if reservations > 0 {
			value := round2(2.5 + g.rnd.Float64()*2.5)
			rating = &value
		}
		dataset.Feedbacks = append(dataset.Feedbacks, Feedback{
			PropertyID: propertyID,
			Month:      month,
			AvgRating:  rating,
			ComplaintCategories: map[string]int{
				"limpeza":    g.rnd.Intn(6),
				"manutencao": g.rnd.Intn(4),
				"checkin":    g.rnd.Intn(3),
			},
		})
	}

	return dataset, nil
}

// PlatformFeePct is the booking platform's cut for a city.
func PlatformFeePct(city string) float64 {
	switch city {
	case "São Paulo":
		return 15
	case "Rio de Janeiro":
		return 12
	default:
		return 18
	}
}

func marginPct(net, gross float64) *float64 {
	if gross <= 0 {
		return nil
	}
	value := round2(net / gross * 100)
	return &value
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
