package sim

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/podral3/Intel-Realsense-L515/ahrs"
	"github.com/podral3/Intel-Realsense-L515/sensors"
)

type FilterConfig struct {
	DeltaT           float64 `yaml:"delta_t"`             // s
	GyroMeanErrorDeg float64 `yaml:"gyro_mean_error_deg"` // °/s
	Beta             float64 `yaml:"beta"`                // Overrides the derived gain when > 0
}

type SourceConfig struct {
	Kind       string    `yaml:"kind"` // "static" or "replay"
	File       string    `yaml:"file"`
	Accel      []float64 `yaml:"accel"`
	Gyro       []float64 `yaml:"gyro"` // rad/s
	AccelNoise float64   `yaml:"accel_noise"`
	GyroNoise  float64   `yaml:"gyro_noise"`
	Samples    int       `yaml:"samples"`
	Seed       int64     `yaml:"seed"`
}

type OutputConfig struct {
	CSV     string `yaml:"csv"`     // Attitude log file
	Plot    string `yaml:"plot"`    // PNG rendered from the CSV after the run
	Web     string `yaml:"web"`     // ahrsweb server address
	Metrics string `yaml:"metrics"` // Listen address for /metrics
}

// Config is the top-level structure of the simulator's YAML file.
type Config struct {
	Filter      FilterConfig `yaml:"filter"`
	Source      SourceConfig `yaml:"source"`
	Output      OutputConfig `yaml:"output"`
	Calibration string       `yaml:"calibration"`
	Realtime    bool         `yaml:"realtime"`
}

// DefaultConfig is a level, still sensor sampled at 100 Hz for 10 s.
func DefaultConfig() *Config {
	return &Config{
		Filter: FilterConfig{
			DeltaT:           ahrs.DefaultDeltaT,
			GyroMeanErrorDeg: ahrs.DefaultGyroMeanErrorDeg,
		},
		Source: SourceConfig{
			Kind:    "static",
			Accel:   []float64{0, 0, 1},
			Gyro:    []float64{0, 0, 0},
			Samples: 1000,
		},
	}
}

// LoadConfig reads the YAML file at path over DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "sim: read config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "sim: parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.MadgwickConfig().Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Source.Kind) {
	case "static":
		if _, err := vec3("accel", c.Source.Accel); err != nil {
			return err
		}
		if _, err := vec3("gyro", c.Source.Gyro); err != nil {
			return err
		}
		if c.Source.Samples < 0 || c.Source.AccelNoise < 0 || c.Source.GyroNoise < 0 {
			return errors.New("sim: source samples and noise must be non-negative")
		}
	case "replay":
		if c.Source.File == "" {
			return errors.New("sim: replay source needs a file")
		}
	default:
		return errors.Errorf("sim: no such source kind %q", c.Source.Kind)
	}
	if c.Output.Plot != "" && c.Output.CSV == "" {
		return errors.New("sim: plot output needs a csv output")
	}
	return nil
}

// MadgwickConfig converts the filter section to filter tuning.
func (c *Config) MadgwickConfig() ahrs.MadgwickConfig {
	return ahrs.MadgwickConfig{
		DeltaT:        c.Filter.DeltaT,
		GyroMeanError: c.Filter.GyroMeanErrorDeg * ahrs.Deg,
		Beta:          c.Filter.Beta,
	}
}

// NewSource builds the configured sample source.
func (c *Config) NewSource() (sensors.Source, error) {
	if strings.ToLower(c.Source.Kind) == "replay" {
		r, err := sensors.NewReplayFromFile(c.Source.File)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	accel, err := vec3("accel", c.Source.Accel)
	if err != nil {
		return nil, err
	}
	gyro, err := vec3("gyro", c.Source.Gyro)
	if err != nil {
		return nil, err
	}
	s := sensors.NewStatic(accel, gyro, time.Duration(c.Filter.DeltaT*float64(time.Second)), c.Source.Samples)
	s.AccelNoise, s.GyroNoise, s.Seed = c.Source.AccelNoise, c.Source.GyroNoise, c.Source.Seed
	return s, s.Rewind()
}

func vec3(name string, v []float64) (ahrs.Vector3, error) {
	if len(v) != 3 {
		return ahrs.Vector3{}, errors.Errorf("sim: %s needs 3 components, got %d", name, len(v))
	}
	return ahrs.NewVector3(v[0], v[1], v[2]), nil
}
