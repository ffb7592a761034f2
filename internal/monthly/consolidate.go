package monthly

import "sort"

const topPropertyCount = 5

// Consolidate joins the dataset per property. Gross revenue comes from the
// financial record and falls back to the booking when there is none.
func Consolidate(dataset Dataset) []Consolidated {
	bookings := make(map[string]Booking, len(dataset.Bookings))
	for _, booking := range dataset.Bookings {
		bookings[booking.PropertyID] = booking
	}
	financials := make(map[string]Financial, len(dataset.Financials))
	for _, financial := range dataset.Financials {
		financials[financial.PropertyID] = financial
	}
	feedbacks := make(map[string]Feedback, len(dataset.Feedbacks))
	for _, feedback := range dataset.Feedbacks {
		feedbacks[feedback.PropertyID] = feedback
	}

	rows := make([]Consolidated, 0, len(dataset.Properties))
	for _, property := range dataset.Properties {
		booking, ok := bookings[property.PropertyID]
		if !ok {
			continue
		}
		row := Consolidated{
			PropertyID:      property.PropertyID,
			OwnerName:       property.OwnerName,
			City:            property.City,
			State:           property.State,
			Region:          property.Region,
			Month:           dataset.Month,
			NumReservations: booking.NumReservations,
			OccupiedDays:    booking.OccupiedDays,
			GrossRevenue:    booking.GrossRevenue,
			OccupancyPct:    round2(float64(booking.OccupiedDays) / DaysPerMonth * 100),
		}
		if financial, ok := financials[property.PropertyID]; ok {
			fee := financial.PlatformFeePct
			extra := financial.ExtraCost
			net := financial.NetRevenue
			row.GrossRevenue = financial.GrossRevenue
			row.PlatformFeePct = &fee
			row.ExtraCost = &extra
			row.NetRevenue = &net
			row.MarginPct = marginPct(net, row.GrossRevenue)
		}
		if feedback, ok := feedbacks[property.PropertyID]; ok {
			row.AvgRating = feedback.AvgRating
			row.ComplaintCategories = feedback.ComplaintCategories
			row.SummaryAI = feedback.SummaryAI
		}
		rows = append(rows, row)
	}
	return rows
}

func ComputeKPIs(rows []Consolidated) KPIs {
	var kpis KPIs
	if len(rows) == 0 {
		return kpis
	}

	occupancy := 0.0
	for _, row := range rows {
		kpis.TotalGrossRevenue += row.GrossRevenue
		if row.NetRevenue != nil {
			kpis.TotalNetRevenue += *row.NetRevenue
		}
		occupancy += row.OccupancyPct
	}
	kpis.TotalGrossRevenue = round2(kpis.TotalGrossRevenue)
	kpis.TotalNetRevenue = round2(kpis.TotalNetRevenue)
	kpis.AverageOccupancyPct = round2(occupancy / float64(len(rows)))

	ranked := make([]Consolidated, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].GrossRevenue != ranked[j].GrossRevenue {
			return ranked[i].GrossRevenue > ranked[j].GrossRevenue
		}
		return ranked[i].PropertyID < ranked[j].PropertyID
	})
	if len(ranked) > topPropertyCount {
		ranked = ranked[:topPropertyCount]
	}
	kpis.TopByGrossRevenue = make([]RankedProperty, 0, len(ranked))
	for _, row := range ranked {
		kpis.TopByGrossRevenue = append(kpis.TopByGrossRevenue, RankedProperty{
			PropertyID:   row.PropertyID,
			OwnerName:    row.OwnerName,
			GrossRevenue: row.GrossRevenue,
			MarginPct:    row.MarginPct,
		})
	}
	return kpis
}
