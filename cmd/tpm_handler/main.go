package main

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/jgbaldwinbrown/tpmhandler/lengths/pkg"
	"github.com/jgbaldwinbrown/tpmhandler/mtx/pkg"
	"github.com/jgbaldwinbrown/tpmhandler/tpm/pkg"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger = log.New()

type rootFlags struct {
	Verbose bool
	Quiet bool
}

type normFlags struct {
	Lengths string
	Out string
	Round int
	Names bool
	Threads int
	Cols tpm.LengthOptions
}

func setupLog(f rootFlags) {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	switch {
	case f.Quiet:
		logger.SetLevel(log.WarnLevel)
	case f.Verbose:
		logger.SetLevel(log.DebugLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

func normaliseCmd() *cobra.Command {
	var f normFlags
	cmd := &cobra.Command{
		Use: "normalise COUNTS",
		Aliases: []string{"normalize"},
		Short: "Convert a table of raw counts to transcripts per million",
		Long: `Reads a tab-separated count table (features by samples, first column
the feature id), matches each feature to its length and writes TPM values.
Features without a usable length are dropped.

 Sample usage:
 tpm_handler normalise counts.tsv -l gencode.v22.lengths -o counts.tpm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.Out == "" {
				f.Out = tpm.DefaultOutput(args[0])
			}
			hd, e := tpm.OpenHandler(args[0], logger)
			if e != nil {
				return e
			}
			if e := hd.SetLengthsPath(f.Lengths, f.Cols); e != nil {
				return e
			}
			o := tpm.Options{Digits: f.Round, Threads: f.Threads, Log: logger}
			if _, e := hd.Normalise(cmd.Context(), o); e != nil {
				return e
			}
			logger.Debug(hd.String())
			return hd.SavePath(f.Out, f.Names)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.Lengths, "lengths", "l", "", "Tab-separated feature length file (required)")
	fl.StringVarP(&f.Out, "output", "o", "", "Output path (default: input stem + .tpm)")
	fl.IntVarP(&f.Round, "round", "r", tpm.DefaultDigits, "Decimal places to keep; negative values round to tens, hundreds and so on; 0 or less writes whole numbers")
	fl.BoolVarP(&f.Names, "use_names", "n", false, "Label rows with feature names instead of ids")
	fl.IntVarP(&f.Threads, "threads", "t", 0, "Columns to normalise at once; 0 means no limit")
	fl.StringVar(&f.Cols.IDCol, "id-col", "", "Length file id column, by name or 0-based index")
	fl.StringVar(&f.Cols.NameCol, "name-col", "", "Length file name column, by name or 0-based index")
	fl.StringVar(&f.Cols.LengthCol, "length-col", "", "Length file length column, by name or 0-based index (default: last)")
	fl.BoolVar(&f.Cols.NoHeader, "no-header", false, "Length file has no header line")
	if e := cmd.MarkFlagRequired("lengths"); e != nil {
		panic(e)
	}
	return cmd
}

func multiCmd() *cobra.Command {
	var jobs string
	var threads int
	cmd := &cobra.Command{
		Use: "normalise-multi",
		Short: "Normalise many count tables described by a JSON job stream",
		Long: `Each JSON object names Counts and Lengths and optionally Output, Round,
UseNames, IDCol, NameCol, LengthCol and NoHeader.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if jobs != "" && jobs != "-" {
				fp, e := os.Open(jobs)
				if e != nil {
					return e
				}
				defer fp.Close()
				r = fp
			}
			js, e := tpm.ReadJobs(bufio.NewReader(r))
			if e != nil {
				return e
			}
			return tpm.RunMulti(cmd.Context(), threads, logger, js...)
		},
	}
	cmd.Flags().StringVarP(&jobs, "jobs", "j", "", "JSON job stream (default stdin)")
	cmd.Flags().IntVarP(&threads, "threads", "t", 1, "Jobs to run at once; 0 means no limit")
	return cmd
}

func lengthCmd() *cobra.Command {
	var f lengths.Flags
	cmd := &cobra.Command{
		Use: "compute-length ANNOTATION",
		Short: "Compute feature lengths from a GTF annotation or a FASTA file",
		Long: `Writes per-gene isoform mean, median, longest and merged exonic lengths
from a GTF file, or per-record sequence lengths with --fasta.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.In = args[0]
			if f.Out == "" {
				f.Out = lengths.DefaultOutput(args[0])
			}
			return lengths.Compute(f, logger)
		},
	}
	cmd.Flags().StringVarP(&f.Out, "output", "o", "", "Output path (default: input with .gtf replaced by .lengths)")
	cmd.Flags().BoolVarP(&f.Names, "add_names", "n", false, "Add a gene name column")
	cmd.Flags().BoolVar(&f.Fasta, "fasta", false, "Input is FASTA, not GTF")
	return cmd
}

func compareCmd() *cobra.Command {
	var out string
	var asJSON bool
	cmd := &cobra.Command{
		Use: "compare OURS REFERENCE",
		Short: "Compare two TPM tables sample by sample",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = "/dev/stdout"
			}
			return tpm.ComparePaths(args[0], args[1], out, asJSON)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output path (default stdout)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write JSON lines instead of TSV")
	return cmd
}

func mtxCmd() *cobra.Command {
	var f mtx.Flags
	cmd := &cobra.Command{
		Use: "mtx-to-tsv MATRIX",
		Short: "Convert a MatrixMarket file to a TSV table",
		Long: `With -n, row and column names are read from MATRIX_rows and MATRIX_cols.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.In = args[0]
			if f.Out == "" {
				f.Out = mtx.DefaultOutput(args[0])
			}
			return mtx.Convert(f, logger)
		},
	}
	cmd.Flags().StringVarP(&f.Out, "output", "o", "", "Output path (default: input with .mtx replaced by .tsv)")
	cmd.Flags().BoolVarP(&f.Names, "names", "n", false, "Read row and column names")
	return cmd
}

func rootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use: "tpm_handler",
		Short: "Normalise RNA-seq count tables to transcripts per million",
		SilenceUsage: true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLog(f)
		},
	}
	root.PersistentFlags().BoolVarP(&f.Verbose, "verbose", "v", false, "Debug logging")
	root.PersistentFlags().BoolVarP(&f.Quiet, "quiet", "q", false, "Only log warnings and errors")
	root.AddCommand(normaliseCmd(), multiCmd(), lengthCmd(), compareCmd(), mtxCmd())
	return root
}

func main() {
	if e := rootCmd().ExecuteContext(context.Background()); e != nil {
		logger.Error(e)
		os.Exit(1)
	}
}
