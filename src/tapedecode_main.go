package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for "tapedecode" which finds the files on
 *		an Atom or BBC Micro cassette recording.
 *
 * Description:	Input can be a .WAV recording, a CSW pulse file or a
 *		UEF tape image.  Every file found is listed with its
 *		blocks.  With -o the data of each file is saved along
 *		with a YAML description of the blocks and their timing.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func TapeDecodeMain() {
	var configFile = pflag.StringP("config", "c", "", "YAML configuration file.")
	var machineStr = pflag.StringP("machine", "m", "atom", "Machine that wrote the tape: atom, bbc or electron.")
	var baud = pflag.IntP("baud", "b", 1200, "Bits / second, 300 or 1200.")
	var freqTolerance = pflag.Float64P("freq-tolerance", "t", DEFAULT_FREQ_TOLERANCE, "Allowed half-cycle timing error, as a fraction.")
	var levelTolerance = pflag.Float64P("level-tolerance", "l", 0, "Fraction of peak amplitude needed to change level.")
	var outputDir = pflag.StringP("output-dir", "o", "", "Save each file's data and metadata in this directory.")
	var verbose = pflag.CountP("verbose", "v", "Trace tones and bytes.  Twice for hex dumps of blocks as well.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Put a time stamp on the report, strftime format.")
	var version = pflag.BoolP("version", "V", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Find the files on an Acorn cassette recording.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] file.wav|file.csw|file.uef\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  %s -m bbc -o out elite.wav\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "    List the files on a BBC Micro tape and save them in out/.\n")
	}

	// !!! PARSE !!!
	pflag.Parse()

	if *version {
		printVersion(os.Stdout, *verbose > 0)

		return
	}

	if *help || pflag.NArg() != 1 {
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

	if pflag.CommandLine.Changed("freq-tolerance") || *configFile == "" {
		cfg.FreqTolerance = *freqTolerance
	}

	if pflag.CommandLine.Changed("level-tolerance") || *configFile == "" {
		cfg.LevelTolerance = *levelTolerance
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	var logger = NewLogger(os.Stderr, *verbose)

	var path = pflag.Arg(0)

	var reader, openErr = OpenTape(path, cfg, logger)
	if openErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", openErr)
		os.Exit(1)
	}

	var decoder = NewBlockDecoder(reader, cfg.Profile(), cfg.CarrierFreq, logger)
	decoder.SetHexDump(*verbose > 1)

	var files, readErr = NewFileAssembler(decoder, logger).ReadAll()
	if readErr != nil {
		logger.Error("reading tape", "err", readErr)
	}

	if *timestampFormat != "" {
		var ts, err = strftime.Format(*timestampFormat, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad timestamp format: %s\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s  %s\n", ts, path)
	}

	printReport(os.Stdout, files)

	if *outputDir != "" {
		if err := saveFiles(*outputDir, files); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}

	if len(files) == 0 {
		fmt.Printf("No files found.\n")
		os.Exit(1)
	}
}

func fileStatus(f *TapeFile) string {
	var parts []string

	parts = append(parts, IfThenElse(f.Complete, "complete", "incomplete"))

	if f.Corrupted {
		parts = append(parts, "corrupted")
	}

	return strings.Join(parts, ", ")
}

func printReport(w io.Writer, files []*TapeFile) {
	for _, f := range files {
		fmt.Fprintf(w, "%-13q  %-8s  %4d baud  load %04X  exec %04X  %3d blocks  %6d bytes  %s\n",
			f.Name, f.Machine, f.BaudRate, f.LoadAddress, f.ExecAddress, len(f.Blocks), len(f.Data()), fileStatus(f))

		for _, b := range f.Blocks {
			var flags []string

			if !b.CompleteHeader {
				flags = append(flags, "short header")
			} else if !b.CompleteData {
				flags = append(flags, "short data")
			}

			if b.Errors != 0 {
				flags = append(flags, b.Errors.String())
			}

			if len(flags) == 0 {
				flags = append(flags, "OK")
			}

			fmt.Fprintf(w, "    block %3d  %s  load %04X  len %3d  %s\n",
				b.Header.BlockNo(), tapeTime(b.Timing.Start), b.Header.Load(), len(b.Data), strings.Join(flags, ", "))
		}
	}
}

// Something safe to use as a file name, from what the tape calls it.
func outputName(name string) string {
	var sb strings.Builder

	for _, r := range name {
		if r > ' ' && r < 0x7F && !strings.ContainsRune(`/\:*?"<>|`, r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}

	if sb.Len() == 0 {
		return "_"
	}

	return sb.String()
}

/*------------------------------------------------------------------
 *
 * Name:	saveFiles
 *
 * Purpose:	Write <name>.bin with the data and <name>.yaml with
 *		everything else about each file.
 *
 * Description:	The same program is often saved several times on one
 *		tape, so later copies get a number added.
 *
 *----------------------------------------------------------------*/

func saveFiles(dir string, files []*TapeFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return err
	}

	var used = make(map[string]int)

	for _, f := range files {
		var base = outputName(f.Name)

		var n = used[base]
		used[base]++

		if n > 0 {
			base = fmt.Sprintf("%s_%d", base, n)
		}

		var binPath = filepath.Join(dir, base+".bin")
		if err := os.WriteFile(binPath, f.Data(), 0o644); err != nil { //nolint:gosec
			return err
		}

		var meta, err = yaml.Marshal(f)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}

		if err := os.WriteFile(filepath.Join(dir, base+".yaml"), meta, 0o644); err != nil { //nolint:gosec
			return err
		}
	}

	return nil
}

// LoadFileMetadata reads back what saveFiles wrote.
func LoadFileMetadata(yamlPath string) (*TapeFile, error) {
	var meta, err = os.ReadFile(yamlPath) //nolint:gosec
	if err != nil {
		return nil, err
	}

	var f TapeFile
	if err := yaml.Unmarshal(meta, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", yamlPath, err)
	}

	var binPath = strings.TrimSuffix(yamlPath, filepath.Ext(yamlPath)) + ".bin"

	var data, binErr = os.ReadFile(binPath) //nolint:gosec
	if binErr != nil && !errors.Is(binErr, os.ErrNotExist) {
		return nil, binErr
	}

	for _, b := range f.Blocks {
		var n = min(len(b.Data), len(data))
		if b.CompleteHeader {
			n = min(b.Header.DataLen(), len(data))
		}

		b.Data = data[:n]
		data = data[n:]
	}

	return &f, nil
}
