package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Decoder settings.
 *
 * Description:	Defaults come from the machine.  A YAML file can
 *		change any of them, and command line options override
 *		the file.  For example:
 *
 *		  machine: bbc
 *		  baud: 1200
 *		  freq_tolerance: 0.2
 *		  level_tolerance: 0
 *		  timing:
 *		    min_lead: 0.3
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const DEFAULT_FREQ_TOLERANCE = 0.2

const DEFAULT_SAMPLES_PER_SEC = 44100

type Config struct {
	Machine        Machine `yaml:"machine"`
	Baud           int     `yaml:"baud"`
	CarrierFreq    float64 `yaml:"carrier_freq"`
	FreqTolerance  float64 `yaml:"freq_tolerance"`
	LevelTolerance float64 `yaml:"level_tolerance"`
	SampleRate     int     `yaml:"sample_rate"` // For writing only.
	Timing         Timing  `yaml:"timing"`
}

func DefaultConfig(m Machine) Config {
	return Config{
		Machine:        m,
		Baud:           1200,
		CarrierFreq:    DEFAULT_CARRIER_FREQ,
		FreqTolerance:  DEFAULT_FREQ_TOLERANCE,
		LevelTolerance: 0,
		SampleRate:     DEFAULT_SAMPLES_PER_SEC,
		Timing:         DefaultTiming(m),
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Baud != 300 && c.Baud != 1200 {
		errs = append(errs, fmt.Errorf("baud must be 300 or 1200, not %d", c.Baud))
	}

	if c.FreqTolerance <= 0 || c.FreqTolerance > MAX_FREQ_TOLERANCE {
		errs = append(errs, fmt.Errorf("freq_tolerance must be above 0 and at most %.2f, not %g", MAX_FREQ_TOLERANCE, c.FreqTolerance))
	}

	if c.LevelTolerance < 0 || c.LevelTolerance >= 1 {
		errs = append(errs, fmt.Errorf("level_tolerance must be from 0 up to 1, not %g", c.LevelTolerance))
	}

	if c.CarrierFreq <= 0 {
		errs = append(errs, fmt.Errorf("carrier_freq must be positive, not %g", c.CarrierFreq))
	}

	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, not %d", c.SampleRate))
	}

	if c.Timing.MinLead <= 0 {
		errs = append(errs, fmt.Errorf("timing.min_lead must be positive, not %g", c.Timing.MinLead))
	}

	return errors.Join(errs...)
}

// Profile is the machine's block format with this configuration's timing.
func (c *Config) Profile() MachineProfile {
	var p = ProfileFor(c.Machine)
	p.Timing = c.Timing

	return p
}

/*------------------------------------------------------------------
 *
 * Name:	LoadConfig
 *
 * Purpose:	Read settings from a YAML file.
 *
 * Inputs:	r	- File contents.
 *
 * Description:	The machine is looked at first so the other defaults
 *		can be the right ones for it.  Then the whole file is
 *		read over those defaults.
 *
 *----------------------------------------------------------------*/

func LoadConfig(r io.Reader) (Config, error) {
	var data, err = io.ReadAll(r)
	if err != nil {
		return Config{}, err //nolint:exhaustruct
	}

	var probe struct {
		Machine Machine `yaml:"machine"`
	}

	if err := yaml.Unmarshal(data, &probe); err != nil {
		return Config{}, err //nolint:exhaustruct
	}

	var cfg = DefaultConfig(probe.Machine)

	var dec = yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err //nolint:exhaustruct
	}

	return cfg, cfg.Validate()
}

func LoadConfigFile(path string) (Config, error) {
	var f, err = os.Open(path) //nolint:gosec
	if err != nil {
		return Config{}, err //nolint:exhaustruct
	}
	defer f.Close()

	var cfg, loadErr = LoadConfig(f)
	if loadErr != nil {
		return cfg, fmt.Errorf("%s: %w", path, loadErr)
	}

	return cfg, nil
}

func (c *Config) Save(w io.Writer) error {
	var enc = yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(c); err != nil {
		return err
	}

	return enc.Close()
}
