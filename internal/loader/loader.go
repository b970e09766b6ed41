// Package loader builds a water network from CSV datasets: reservoirs,
// pumping stations, delivery sites, and pipes. After loading it attaches
// the virtual super source and super sink so the network is ready for
// max-flow computation.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"watersupply/pkg/apperror"
	"watersupply/pkg/domain"
	"watersupply/pkg/logger"
)

// Files names the four CSV datasets of one network.
type Files struct {
	Reservoirs string
	Stations   string
	Sites      string
	Pipes      string
}

// Load reads the datasets from disk and returns a network with the
// virtual super source and sink attached.
func Load(files Files) (*domain.Network, error) {
	n := domain.NewNetwork()

	steps := []struct {
		path  string
		parse func(io.Reader, *domain.Network) error
	}{
		{files.Reservoirs, parseReservoirs},
		{files.Stations, parseStations},
		{files.Sites, parseSites},
		{files.Pipes, parsePipes},
	}

	for _, step := range steps {
		f, err := os.Open(step.path)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeInvalidRecord, fmt.Sprintf("open dataset %s", step.path), err)
		}
		err = step.parse(f, n)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.path, err)
		}
	}

	if err := AttachSuperNodes(n); err != nil {
		return nil, err
	}

	logger.Info("network loaded",
		"stations", n.StationCount(),
		"pipes", n.PipeCount(),
		"total_demand", n.TotalDemand(),
	)

	return n, nil
}

// LoadFromReaders builds a network from in-memory datasets. Used by the
// API surface where clients upload CSV content directly.
func LoadFromReaders(reservoirs, stations, sites, pipes io.Reader) (*domain.Network, error) {
	n := domain.NewNetwork()

	if err := parseReservoirs(reservoirs, n); err != nil {
		return nil, err
	}
	if err := parseStations(stations, n); err != nil {
		return nil, err
	}
	if err := parseSites(sites, n); err != nil {
		return nil, err
	}
	if err := parsePipes(pipes, n); err != nil {
		return nil, err
	}

	if err := AttachSuperNodes(n); err != nil {
		return nil, err
	}

	return n, nil
}

// AttachSuperNodes adds the virtual super source and super sink. The
// source feeds every reservoir with its maximum delivery; every delivery
// site drains into the sink with its demand.
func AttachSuperNodes(n *domain.Network) error {
	if n.StationCount() == 0 {
		return apperror.New(apperror.CodeEmptyNetwork, "network has no stations")
	}

	if err := n.AddStation(&domain.Station{
		Code: domain.SuperSourceCode,
		Name: "Super Source",
		Type: domain.StationTypeSuperSource,
	}); err != nil {
		return err
	}
	if err := n.AddStation(&domain.Station{
		Code: domain.SuperSinkCode,
		Name: "Super Sink",
		Type: domain.StationTypeSuperSink,
	}); err != nil {
		return err
	}

	for _, s := range n.Stations() {
		switch s.Type {
		case domain.StationTypeReservoir:
			if err := n.AddPipe(&domain.Pipe{
				From:     domain.SuperSourceCode,
				To:       s.Code,
				Capacity: s.MaxDelivery,
			}); err != nil {
				return err
			}
		case domain.StationTypeDelivery:
			if err := n.AddPipe(&domain.Pipe{
				From:     s.Code,
				To:       domain.SuperSinkCode,
				Capacity: s.Demand,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// Reservoir records: name, municipality, id, code, max delivery.
func parseReservoirs(r io.Reader, n *domain.Network) error {
	return forEachRecord(r, 5, func(line int, fields []string) error {
		maxDelivery, err := parseNumber(fields[4])
		if err != nil {
			return recordErr(line, "max delivery", err)
		}

		return n.AddStation(&domain.Station{
			Code:         strings.TrimSpace(fields[3]),
			Name:         strings.TrimSpace(fields[0]),
			Municipality: strings.TrimSpace(fields[1]),
			Type:         domain.StationTypeReservoir,
			MaxDelivery:  maxDelivery,
		})
	})
}

// Pumping station records: id, code.
func parseStations(r io.Reader, n *domain.Network) error {
	return forEachRecord(r, 2, func(line int, fields []string) error {
		return n.AddStation(&domain.Station{
			Code: strings.TrimSpace(fields[1]),
			Type: domain.StationTypePumping,
		})
	})
}

// Delivery site records: city, id, code, demand, population.
func parseSites(r io.Reader, n *domain.Network) error {
	return forEachRecord(r, 5, func(line int, fields []string) error {
		demand, err := parseNumber(fields[3])
		if err != nil {
			return recordErr(line, "demand", err)
		}

		population, err := parseInt(fields[4])
		if err != nil {
			return recordErr(line, "population", err)
		}

		return n.AddStation(&domain.Station{
			Code:       strings.TrimSpace(fields[2]),
			Name:       strings.TrimSpace(fields[0]),
			Type:       domain.StationTypeDelivery,
			Demand:     demand,
			Population: int64(population),
		})
	})
}

// Pipe records: service point A, service point B, capacity, direction.
// Direction 1 is unidirectional A->B; 0 produces a directed pipe each way.
func parsePipes(r io.Reader, n *domain.Network) error {
	return forEachRecord(r, 4, func(line int, fields []string) error {
		from := strings.TrimSpace(fields[0])
		to := strings.TrimSpace(fields[1])

		capacity, err := parseNumber(fields[2])
		if err != nil {
			return recordErr(line, "capacity", err)
		}

		direction, err := parseInt(fields[3])
		if err != nil {
			return recordErr(line, "direction", err)
		}

		if direction == 1 {
			return n.AddPipe(&domain.Pipe{From: from, To: to, Capacity: capacity})
		}

		if err := n.AddPipe(&domain.Pipe{From: from, To: to, Capacity: capacity, Bidirectional: true}); err != nil {
			return err
		}
		return n.AddPipe(&domain.Pipe{From: to, To: from, Capacity: capacity, Bidirectional: true})
	})
}

// forEachRecord streams CSV records, skipping the header row and blank
// lines, and checks the field count before invoking fn.
func forEachRecord(r io.Reader, minFields int, fn func(line int, fields []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	line := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apperror.Wrap(apperror.CodeInvalidRecord, "malformed CSV", err)
		}

		line++
		if line == 1 {
			continue // header
		}
		if isBlank(fields) {
			continue
		}

		if len(fields) < minFields {
			return apperror.NewWithField(
				apperror.CodeInvalidRecord,
				fmt.Sprintf("line %d: expected at least %d fields, got %d", line, minFields, len(fields)),
				"record",
			)
		}

		if err := fn(line, fields); err != nil {
			return err
		}
	}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseNumber parses a float, tolerating thousand separators and quotes
// found in the source datasets.
func parseNumber(s string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "\"", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}

func parseInt(s string) (int, error) {
	cleaned := strings.NewReplacer(",", "", "\"", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0, nil
	}
	return strconv.Atoi(cleaned)
}

func recordErr(line int, field string, err error) error {
	return apperror.Wrap(
		apperror.CodeInvalidRecord,
		fmt.Sprintf("line %d: invalid %s", line, field),
		err,
	)
}
