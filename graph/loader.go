package graph

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/transitstat/transitgo/geo"
)

// LoadCSV builds a graph from two CSV files.
//
// The nodes file needs node_id, lat and lon columns. The edges file needs
// from_node and to_node, plus optional oneway (1/true for directed) and
// geometry ("lon lat;lon lat;..." between the endpoints) columns. Edges
// without oneway are inserted in both directions.
func LoadCSV(nodesPath, edgesPath string, cellSizeM float64) (*Graph, error) {
	nodes, err := readCSV(nodesPath)
	if err != nil {
		return nil, err
	}
	edges, err := readCSV(edgesPath)
	if err != nil {
		return nil, err
	}

	b := NewBuilder()
	byID := map[string]NodeID{}

	head := nodes[0]
	nID := columnIndex(head, "node_id")
	nLat := columnIndex(head, "lat")
	nLon := columnIndex(head, "lon")
	if nID < 0 || nLat < 0 || nLon < 0 {
		return nil, fmt.Errorf("%s: missing node_id, lat or lon column", nodesPath)
	}
	for _, row := range nodes[1:] {
		id := field(row, nID)
		if id == "" {
			continue
		}
		lat, err1 := strconv.ParseFloat(field(row, nLat), 64)
		lon, err2 := strconv.ParseFloat(field(row, nLon), 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%s: node %s: bad coordinates", nodesPath, id)
		}
		byID[id] = b.AddNode(geo.Point{lon, lat})
	}

	head = edges[0]
	eFrom := columnIndex(head, "from_node")
	eTo := columnIndex(head, "to_node")
	eOne := columnIndex(head, "oneway")
	eGeom := columnIndex(head, "geometry")
	if eFrom < 0 || eTo < 0 {
		return nil, fmt.Errorf("%s: missing from_node or to_node column", edgesPath)
	}
	for i, row := range edges[1:] {
		from, okF := byID[field(row, eFrom)]
		to, okT := byID[field(row, eTo)]
		if !okF || !okT {
			return nil, fmt.Errorf("%s: row %d references unknown node", edgesPath, i+2)
		}
		geom, err := parseGeometry(field(row, eGeom), b.nodes[from].Point, b.nodes[to].Point)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", edgesPath, i+2, err)
		}
		oneway := false
		if v := strings.ToLower(field(row, eOne)); v == "1" || v == "true" || v == "yes" {
			oneway = true
		}
		if oneway {
			_, err = b.AddEdge(from, to, geom)
		} else {
			_, _, err = b.AddBidirectional(from, to, geom)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", edgesPath, i+2, err)
		}
	}
	return b.Build(cellSizeM), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rec, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	return rec, nil
}

func columnIndex(head []string, col string) int {
	for i, h := range head {
		if strings.EqualFold(strings.TrimSpace(h), col) {
			return i
		}
	}
	return -1
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseGeometry reads a "lon lat;lon lat" vertex list and pins the endpoints
// to the edge's nodes; an empty value yields the straight line.
func parseGeometry(s string, from, to geo.Point) ([]geo.Point, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	pts := make([]geo.Point, 0, len(parts)+2)
	pts = append(pts, from)
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return nil, fmt.Errorf("bad geometry vertex %q", part)
		}
		lon, err1 := strconv.ParseFloat(fields[0], 64)
		lat, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("bad geometry vertex %q", part)
		}
		pts = append(pts, geo.Point{lon, lat})
	}
	pts = append(pts, to)
	return pts, nil
}
