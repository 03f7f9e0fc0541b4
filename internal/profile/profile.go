// Package profile loads the farmer profile that personalizes advisory
// responses. The profile is plain JSON supplied alongside the deployment,
// loaded once at startup and treated as read-only.
package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kisansetu/kisanmitra/pkg/models"
)

// DefaultPath is where the profile is looked up when no path is configured.
const DefaultPath = "context/farmer_profile.json"

// Load reads and validates a farmer profile from the given path.
// An empty path falls back to DefaultPath.
func Load(path string) (*models.FarmerProfile, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read farmer profile: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a farmer profile from raw JSON.
func Parse(data []byte) (*models.FarmerProfile, error) {
	var p models.FarmerProfile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode farmer profile: %w", err)
	}

	if err := validate(&p); err != nil {
		return nil, fmt.Errorf("invalid farmer profile: %w", err)
	}
	return &p, nil
}

func validate(p *models.FarmerProfile) error {
	if p.Name == "" && p.NameEnglish == "" {
		return fmt.Errorf("missing farmer name")
	}
	if p.Location.District == "" {
		return fmt.Errorf("missing district")
	}
	if p.Location.State == "" {
		return fmt.Errorf("missing state")
	}
	if p.Farm.TotalLandAcres < 0 {
		return fmt.Errorf("negative land area")
	}
	if p.Farm.IrrigatedAcres > p.Farm.TotalLandAcres {
		return fmt.Errorf("irrigated area exceeds total land")
	}
	return nil
}
