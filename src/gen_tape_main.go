package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for "gen_tape" which turns a binary file
 *		into a cassette recording an Atom or BBC Micro could
 *		load.
 *
 * Description:	Handy for testing tapedecode.  The output type follows
 *		the file name: .wav (default), .csw pulses or a .uef
 *		tape image.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const GEN_TAPE_AMPLITUDE = 16000

// Addresses are written the Acorn way (&2900), C way (0x2900) or bare hex.
func parseAddress(s string) (uint32, error) {
	var t = strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "&")
	t = strings.TrimPrefix(strings.TrimPrefix(t, "0x"), "0X")

	var v, err = strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}

	return uint32(v), nil
}

func GenTapeMain() {
	var outputFile = pflag.StringP("output", "o", "", "Output file, .wav, .csw or .uef.")
	var name = pflag.StringP("name", "n", "", "Name on tape.  Default is the input file name.")
	var loadStr = pflag.StringP("load", "L", "2900", "Load address, hex.")
	var execStr = pflag.StringP("exec", "E", "", "Execution address, hex.  Default same as load.")
	var machineStr = pflag.StringP("machine", "m", "atom", "atom, bbc or electron.")
	var baud = pflag.IntP("baud", "b", 1200, "Bits / second, 300 or 1200.")
	var sampleRate = pflag.IntP("sample-rate", "r", DEFAULT_SAMPLES_PER_SEC, "Audio samples per second.")
	var configFile = pflag.StringP("config", "c", "", "YAML configuration file.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Make a cassette recording of a file.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -o out.wav input.bin\n", os.Args[0])
		pflag.PrintDefaults()
	}

	// !!! PARSE !!!
	pflag.Parse()

	if *help || pflag.NArg() != 1 || *outputFile == "" {
		pflag.Usage()
		os.Exit(1)
	}

	var machine, machineErr = ParseMachine(*machineStr)
	if machineErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", machineErr)
		os.Exit(1)
	}

	var cfg = DefaultConfig(machine)

	if *configFile != "" {
		var err error

		cfg, err = LoadConfigFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Config file: %s\n", err)
			os.Exit(1)
		}

		if pflag.CommandLine.Changed("machine") {
			cfg.Machine = machine
		}
	}

	if pflag.CommandLine.Changed("baud") || *configFile == "" {
		cfg.Baud = *baud
	}

	if pflag.CommandLine.Changed("sample-rate") || *configFile == "" {
		cfg.SampleRate = *sampleRate
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	var load, loadErr = parseAddress(*loadStr)
	if loadErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", loadErr)
		os.Exit(1)
	}

	var exec = load

	if *execStr != "" {
		var err error

		exec, err = parseAddress(*execStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}

	var inputFile = pflag.Arg(0)

	var data, readErr = os.ReadFile(inputFile) //nolint:gosec
	if readErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", readErr)
		os.Exit(1)
	}

	if *name == "" {
		*name = strings.ToUpper(strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile)))
	}

	var profile = cfg.Profile()
	var file = NewTapeFile(profile, *name, load, exec, data, cfg.Baud)

	if err := writeTape(*outputFile, cfg, profile, file); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	fmt.Printf("%q  %d blocks  %d bytes  load %04X  exec %04X  -> %s\n",
		file.Name, len(file.Blocks), len(data), load, exec, *outputFile)
}

/*------------------------------------------------------------------
 *
 * Name:	writeTape
 *
 * Purpose:	Write one file as a recording.
 *
 * Inputs:	path	- Type comes from the extension.
 *
 *----------------------------------------------------------------*/

func writeTape(path string, cfg Config, profile MachineProfile, file *TapeFile) error {
	var ext = strings.ToLower(filepath.Ext(path))

	if ext == ".uef" {
		return os.WriteFile(path, EncodeUEF(profile, file), 0o644) //nolint:gosec
	}

	var w = NewToneWriter(cfg.SampleRate, cfg.Baud, cfg.CarrierFreq)

	// Some quiet at the start, as there would be on a real tape.
	w.Silence(0.5)
	WriteFile(w, profile, file)

	if ext == ".csw" {
		var pulses, initial = w.Pulses()

		return WriteCSW(path, &PulseAudio{Pulses: pulses, Initial: initial, SampleRate: cfg.SampleRate})
	}

	return WriteWAV(path, w.Samples(GEN_TAPE_AMPLITUDE), cfg.SampleRate)
}
