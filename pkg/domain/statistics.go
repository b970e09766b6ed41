package domain

import "sort"

// SiteDelivery describes how well one delivery site is served by the current
// flow assignment.
type SiteDelivery struct {
	Code      string
	Name      string
	Demand    float64
	Delivered float64
	Deficit   float64
}

// Satisfied reports whether the site's demand is fully met.
func (d SiteDelivery) Satisfied() bool {
	return IsZero(d.Deficit)
}

// NetworkStatistics summarizes the current flow assignment of a network.
type NetworkStatistics struct {
	TotalDelivered     float64
	TotalDemand        float64
	TotalDeficit       float64
	Deliveries         []SiteDelivery
	SaturatedPipes     int
	AverageUtilization float64
}

// ComputeDeliveries returns per-site delivery figures for every delivery
// site, sorted by code. Delivered is the flow on the site's outlet to the
// super sink when one exists, otherwise the total inflow to the site.
func ComputeDeliveries(n *Network) []SiteDelivery {
	var out []SiteDelivery
	for _, s := range n.Stations() {
		if s.Type != StationTypeDelivery {
			continue
		}
		delivered := 0.0
		if outlet := n.Pipe(s.Code, SuperSinkCode); outlet != nil {
			delivered = outlet.CurrentFlow
		} else {
			delivered = n.DeliveredTo(s.Code)
		}
		deficit := s.Demand - delivered
		if deficit < 0 {
			deficit = 0
		}
		out = append(out, SiteDelivery{
			Code:      s.Code,
			Name:      s.Name,
			Demand:    s.Demand,
			Delivered: delivered,
			Deficit:   deficit,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ComputeStatistics aggregates delivery and utilization figures for the
// current flow assignment.
func ComputeStatistics(n *Network) *NetworkStatistics {
	stats := &NetworkStatistics{
		Deliveries:  ComputeDeliveries(n),
		TotalDemand: n.TotalDemand(),
	}
	for _, d := range stats.Deliveries {
		stats.TotalDelivered += d.Delivered
		stats.TotalDeficit += d.Deficit
	}

	var utilSum float64
	var realPipes int
	for _, p := range n.Pipes() {
		if p.From == SuperSourceCode || p.To == SuperSinkCode {
			continue
		}
		realPipes++
		utilSum += p.Utilization()
		if p.IsSaturated() {
			stats.SaturatedPipes++
		}
	}
	if realPipes > 0 {
		stats.AverageUtilization = utilSum / float64(realPipes)
	}
	return stats
}
