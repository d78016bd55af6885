package cmd

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/snapshot"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

type deriveOptions struct {
	*rootOptions
	policy        string
	out           string
	pairs         bool
	defaultNegCtl bool
}

func newDeriveSourceCmd(root *rootOptions) *cobra.Command {
	opts := &deriveOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "derive-source [sample-names-file]",
		Short: "Build a sampleID/source table from a list of sample names",
		Long: `Reads one sample name per line (from the file, or stdin when omitted or
"-") and groups replicates by the prefix before their last underscore.

Policies:
  infer-pairs          keep groups of two or more samples
  flexible-replicates  keep every sample with its group
  self-as-source       make every sample its own source`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := "-"
			if len(args) == 1 {
				in = args[0]
			}
			return opts.run(afero.NewOsFs(), cmd.InOrStdin(), cmd.OutOrStdout(), in)
		},
	}
	cmd.Flags().StringVarP(&opts.policy, "policy", "p", source.InferPairs.String(), "source policy")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.pairs, "pairs", false, "write the pepsirf enrich pairs format instead of a table")
	cmd.Flags().BoolVar(&opts.defaultNegCtl, "default-negative-controls", false, "log every sample as a negative control")
	return cmd
}

func (o *deriveOptions) run(fs afero.Fs, stdin io.Reader, stdout io.Writer, in string) error {
	policy, err := source.ParsePolicy(o.policy)
	if err != nil {
		return err
	}

	r := stdin
	if in != "-" {
		f, err := fs.Open(in)
		if err != nil {
			return errors.NewIOError("open", in, err)
		}
		defer f.Close()
		r = f
	}
	samples, err := source.ReadSampleNames(r)
	if err != nil {
		return errors.NewIOError("read sample names", in, err)
	}

	d, err := source.Derive(samples, policy, source.Options{DefaultNegativeControls: o.defaultNegCtl})
	if err != nil {
		return err
	}
	o.logger.Info("Derived source table",
		zap.Stringer("policy", policy),
		zap.Int("samples", len(samples)),
		zap.Int("rows", d.Table.Len()))
	if d.NegativeControlsDefaulted {
		o.logger.Warn("Treating all samples as negative controls", zap.Strings("negative_controls", d.NegativeControls))
	}

	if o.out == "" {
		return o.write(stdout, d.Table)
	}
	if !o.pairs {
		return snapshot.WriteTable(fs, o.out, d.Table)
	}
	f, err := fs.OpenFile(o.out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewIOError("create", o.out, err)
	}
	if err := o.write(f, d.Table); err != nil {
		f.Close()
		return errors.NewIOError("write", o.out, err)
	}
	return f.Close()
}

func (o *deriveOptions) write(w io.Writer, tbl *source.Table) error {
	if o.pairs {
		return tbl.WritePairs(w)
	}
	return tbl.WriteTSV(w)
}
