package validate

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the YAML-serializable form of a ValidationConfig, so a gate
// setup can be kept next to a batch of sources and reused.
//
//	name: strict-scan
//	thresholds:
//	  V0.printable_ratio: 0.95
//	  V3.id_uniqueness: 1.0
//	skip_gates: [V2]
//	strict: true
type Profile struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Thresholds  map[string]float64 `yaml:"thresholds,omitempty"`
	SkipGates   []string           `yaml:"skip_gates,omitempty"`
	Strict      bool               `yaml:"strict"`
	FailOnWarn  bool               `yaml:"fail_on_warn"`
}

// Config converts the profile to a ValidationConfig after checking every
// threshold key names a known gate metric.
func (profile *Profile) Config() (*ValidationConfig, error) {
	known := knownMetrics()

	config := DefaultValidationConfig()
	for key, value := range profile.Thresholds {
		if !known[key] {
			return nil, fmt.Errorf("profile %q: unknown threshold %q", profile.Name, key)
		}
		if value < 0 || value > 1 {
			return nil, fmt.Errorf("profile %q: threshold %q must be between 0 and 1, got %v", profile.Name, key, value)
		}
		config.Thresholds[key] = value
	}
	for _, gateName := range profile.SkipGates {
		if !knownGate(gateName) {
			return nil, fmt.Errorf("profile %q: unknown gate %q", profile.Name, gateName)
		}
		config.SkipGates = append(config.SkipGates, gateName)
	}
	config.StrictMode = profile.Strict
	config.FailOnWarn = profile.FailOnWarn
	return config, nil
}

// ProfileFromConfig captures config as a named profile.
func ProfileFromConfig(name string, config *ValidationConfig) *Profile {
	profile := &Profile{
		Name:       name,
		Thresholds: make(map[string]float64, len(config.Thresholds)),
		SkipGates:  append([]string(nil), config.SkipGates...),
		Strict:     config.StrictMode,
		FailOnWarn: config.FailOnWarn,
	}
	for key, value := range config.Thresholds {
		profile.Thresholds[key] = value
	}
	return profile
}

// ToYAML serializes the profile to YAML bytes.
func (profile *Profile) ToYAML() ([]byte, error) {
	return yaml.Marshal(profile)
}

// ProfileFromYAML deserializes YAML bytes into a ValidationConfig.
func ProfileFromYAML(yamlData []byte) (*ValidationConfig, error) {
	var profile Profile
	if err := yaml.Unmarshal(yamlData, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
	}
	return profile.Config()
}

// LoadProfileFromFile reads a YAML gate profile from disk.
func LoadProfileFromFile(filePath string) (*ValidationConfig, error) {
	yamlData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", filePath, err)
	}
	return ProfileFromYAML(yamlData)
}

// SaveProfileToFile writes a profile to a YAML file on disk.
func SaveProfileToFile(profile *Profile, filePath string) error {
	yamlData, err := profile.ToYAML()
	if err != nil {
		return fmt.Errorf("failed to serialize profile to YAML: %w", err)
	}
	if err := os.WriteFile(filePath, yamlData, 0644); err != nil {
		return fmt.Errorf("failed to write profile file %s: %w", filePath, err)
	}
	return nil
}

// MetricKeys lists every "Gate.metric" threshold key of the default gates.
func MetricKeys() []string {
	known := knownMetrics()
	keys := make([]string, 0, len(known))
	for key := range known {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func defaultGates() []ValidationGate {
	return []ValidationGate{
		NewSourceGate(),
		NewStructureGate(),
		NewCoverageGate(),
		NewIdentifierGate(),
	}
}

// DefaultThresholds returns the built-in threshold of every default gate
// metric, keyed "Gate.metric".
func DefaultThresholds() map[string]float64 {
	thresholds := make(map[string]float64)
	for _, gate := range defaultGates() {
		for metricName, threshold := range gate.Thresholds() {
			thresholds[gate.Name()+"."+metricName] = threshold
		}
	}
	return thresholds
}

func knownMetrics() map[string]bool {
	known := make(map[string]bool)
	for key := range DefaultThresholds() {
		known[key] = true
	}
	return known
}

func knownGate(gateName string) bool {
	for _, gate := range defaultGates() {
		if strings.EqualFold(gate.Name(), gateName) {
			return true
		}
	}
	return false
}
