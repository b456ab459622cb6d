package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/helio-sim/driftsim/internal/device"
)

// Store persists stabilization runs, one directory per run holding
// metadata.json and states.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	MuIonic        float64   `json:"mu_ionic"`
	MuElectronic   float64   `json:"mu_electronic"`
	AppliedVoltage float64   `json:"applied_voltage"`
	TMax           float64   `json:"tmax"`
	RelTol         float64   `json:"rtol"`
	Iterations     int       `json:"iterations"`
	Settled        bool      `json:"settled"`
}

var varNames = []string{"u_ionic", "u_electronic"}

// Save writes one stabilized run and returns its ID.
func (s *Store) Save(sol device.Solution, rtol float64, iterations int, settled bool) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:             runID,
		Timestamp:      time.Now(),
		MuIonic:        sol.Par.MuIonic,
		MuElectronic:   sol.Par.MuElectronic,
		AppliedVoltage: sol.Par.AppliedVoltage,
		TMax:           sol.Par.TMax,
		RelTol:         rtol,
		Iterations:     iterations,
		Settled:        settled,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if sol.Rows() == 0 {
		return runID, nil
	}

	header := []string{"time"}
	for i := range sol.U[0] {
		if i < len(varNames) {
			header = append(header, varNames[i])
		} else {
			header = append(header, fmt.Sprintf("u%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i, row := range sol.U {
		rec := []string{strconv.FormatFloat(sol.T[i], 'g', -1, 64)}
		for _, val := range row {
			rec = append(rec, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStates reads back the time series of a run.
func (s *Store) LoadStates(runID string) (u [][]float64, t []float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	for _, rec := range records[1:] {
		tv, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad time value %q: %w", rec[0], err)
		}
		row := make([]float64, 0, len(rec)-1)
		for _, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad state value %q: %w", field, err)
			}
			row = append(row, v)
		}
		t = append(t, tv)
		u = append(u, row)
	}

	return u, t, nil
}
