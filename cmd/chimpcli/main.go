/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// chimpcli compresses and decompresses flat binary float streams with the
// Chimp-family codec (SPEC_FULL section 13). It mirrors the teacher's
// manual --key=value argument scanning rather than pulling in flag or
// cobra, since nothing about this CLI needs subcommands or usage-string
// generation beyond what printHelp already does by hand.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	chimpflow "github.com/chimpflow/chimpflow"
	"github.com/chimpflow/chimpflow/compute"
)

const (
	argInput      = "--input="
	argOutput     = "--output="
	argDecompress = "--decompress"
	argWidth      = "--width="
	argBlock      = "--block="
	argWindow     = "--window="
	argJobs       = "--jobs="
	argBackend    = "--backend="
	argAdapter    = "--adapter="
	argDebug      = "--debug"
)

type cliArgs struct {
	input      string
	output     string
	decompress bool
	width      int
	blockSize  int
	window     int
	jobs       uint
	backend    string
	adapter    string
	debug      bool
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printHelp()
		os.Exit(1)
	}

	if args.input == "" {
		printHelp()
		os.Exit(1)
	}

	if err := run(args); err != nil {
		fmt.Fprintln(os.Stderr, "chimpcli:", err)
		os.Exit(1)
	}
}

func parseArgs(argv []string) (cliArgs, error) {
	args := cliArgs{width: 64, blockSize: chimpflow.DefaultBlockSize, backend: "scalar"}

	for _, arg := range argv {
		arg = strings.TrimSpace(arg)

		switch {
		case arg == "-h" || arg == "--help":
			printHelp()
			os.Exit(0)

		case arg == argDecompress:
			args.decompress = true

		case arg == argDebug:
			args.debug = true

		case strings.HasPrefix(arg, argInput):
			args.input = strings.TrimPrefix(arg, argInput)

		case strings.HasPrefix(arg, argOutput):
			args.output = strings.TrimPrefix(arg, argOutput)

		case strings.HasPrefix(arg, argWidth):
			v, err := strconv.Atoi(strings.TrimPrefix(arg, argWidth))
			if err != nil || (v != 32 && v != 64) {
				return args, fmt.Errorf("invalid --width value %q: must be 32 or 64", arg)
			}
			args.width = v

		case strings.HasPrefix(arg, argBlock):
			v, err := strconv.Atoi(strings.TrimPrefix(arg, argBlock))
			if err != nil || v <= 0 {
				return args, fmt.Errorf("invalid --block value %q", arg)
			}
			args.blockSize = v

		case strings.HasPrefix(arg, argWindow):
			v, err := strconv.Atoi(strings.TrimPrefix(arg, argWindow))
			if err != nil {
				return args, fmt.Errorf("invalid --window value %q", arg)
			}
			args.window = v

		case strings.HasPrefix(arg, argJobs):
			v, err := strconv.Atoi(strings.TrimPrefix(arg, argJobs))
			if err != nil || v < 0 {
				return args, fmt.Errorf("invalid --jobs value %q", arg)
			}
			args.jobs = uint(v)

		case strings.HasPrefix(arg, argBackend):
			v := strings.ToLower(strings.TrimPrefix(arg, argBackend))
			if v != "scalar" && v != "device" {
				return args, fmt.Errorf("invalid --backend value %q: must be scalar or device", arg)
			}
			args.backend = v

		case strings.HasPrefix(arg, argAdapter):
			args.adapter = strings.TrimPrefix(arg, argAdapter)

		default:
			return args, fmt.Errorf("unknown option %q", arg)
		}
	}

	return args, nil
}

func printHelp() {
	fmt.Println("chimpcli -- Chimp-family XOR-delta float codec")
	fmt.Println()
	fmt.Println("  --input=<path>       mandatory: input file (floats on compress, a")
	fmt.Println("                       chimpflow stream on decompress)")
	fmt.Println("  --output=<path>      output file (defaults to stdout)")
	fmt.Println("  --decompress         decompress instead of compress")
	fmt.Println("  --width=32|64        element width (default 64)")
	fmt.Println("  --block=<n>          values per block, multiple of 256 (default 256)")
	fmt.Println("  --window=0|32|64|128 ChimpN reference window, 0 = base Chimp (default 0)")
	fmt.Println("  --jobs=<n>           concurrent blocks for the device backend (default 1)")
	fmt.Println("  --backend=scalar|device  compute backend (default scalar)")
	fmt.Println("  --adapter=<name>     adapter name substring, device backend only")
	fmt.Println("  --debug              print one trace line per pipeline stage event")
}

func run(args cliArgs) error {
	cfg := chimpflow.DefaultConfig()
	cfg.BlockSize = args.blockSize

	window, err := windowFromInt(args.window)
	if err != nil {
		return err
	}
	cfg.Window = window
	cfg.Jobs = args.jobs
	cfg.Adapter = args.adapter
	cfg.Debug = args.debug

	if args.debug {
		cfg.Listeners = append(cfg.Listeners, &chimpflow.PrintListener{
			Write: func(s string) { fmt.Fprintln(os.Stderr, s) },
		})
	}

	var ctx chimpflow.ComputeContext
	if args.backend == "device" {
		ctx = compute.NewDeviceContext(cfg.JobsOrDefault(), args.adapter)
	} else {
		ctx = compute.NewScalarContext()
	}

	compressor, err := compute.NewCompressor(cfg, ctx)
	if err != nil {
		return err
	}

	input, err := os.ReadFile(args.input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args.input, err)
	}

	out, ioMs, err := process(compressor, args, input)
	if err != nil {
		return err
	}

	if args.output == "" {
		_, err = os.Stdout.Write(out)
	} else {
		err = os.WriteFile(args.output, out, 0o644)
	}
	if err != nil {
		return err
	}

	if args.debug {
		fmt.Fprintf(os.Stderr, "io_time_ms=%d elapsed=%s\n", ioMs, time.Duration(ioMs)*time.Millisecond)
	}

	return nil
}

func windowFromInt(n int) (chimpflow.ReferenceWindow, error) {
	switch n {
	case 0:
		return chimpflow.NoReferenceWindow, nil
	case 32:
		return chimpflow.Window32, nil
	case 64:
		return chimpflow.Window64, nil
	case 128:
		return chimpflow.Window128, nil
	default:
		return 0, fmt.Errorf("invalid --window value %d: must be one of 0,32,64,128", n)
	}
}

func process(c *compute.Compressor, args cliArgs, input []byte) ([]byte, int64, error) {
	if args.decompress {
		if args.width == 32 {
			values, ioMs, err := c.DecompressFloat32(input)
			if err != nil {
				return nil, 0, err
			}
			return encodeFloat32LE(values), ioMs, nil
		}

		values, ioMs, err := c.DecompressFloat64(input)
		if err != nil {
			return nil, 0, err
		}
		return encodeFloat64LE(values), ioMs, nil
	}

	if args.width == 32 {
		values, err := decodeFloat32LE(input)
		if err != nil {
			return nil, 0, err
		}
		data, _, ioMs, err := c.CompressFloat32(values)
		return data, ioMs, err
	}

	values, err := decodeFloat64LE(input)
	if err != nil {
		return nil, 0, err
	}
	data, _, ioMs, err := c.CompressFloat64(values)
	return data, ioMs, err
}

func decodeFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of 4 bytes for --width=32", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

func decodeFloat64LE(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of 8 bytes for --width=64", len(data))
	}
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

func encodeFloat32LE(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func encodeFloat64LE(values []float64) []byte {
	out := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}
