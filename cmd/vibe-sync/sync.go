package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/metagenome"
	"github.com/inodb/vibe-sync/internal/output"
	"github.com/inodb/vibe-sync/internal/track"
	"github.com/inodb/vibe-sync/internal/vcf"
)

func newSyncCmd(a *app) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize a project and print per-chromosome statistics",
		Example: `  vibe-sync sync -p project.yaml
  vibe-sync sync -p project.yaml --save trio`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			mg := a.newContext(s, nil)
			if err := a.load(cmd.Context(), cmd, s, mg); err != nil {
				return err
			}

			ls, err := lengths(mg)
			if err != nil {
				return err
			}
			if err := output.WriteStats(cmd.OutOrStdout(), mg.Stats(), ls); err != nil {
				return err
			}
			if save == "" {
				return nil
			}

			snap, err := mg.Snapshot()
			if err != nil {
				return err
			}
			store, closeStore, err := s.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.Save(cmd.Context(), save, snap); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved session %s (%s)\n", save, snap.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "Save the synchronized state under this session name")
	return cmd
}

// parseWindow parses chrom[:start[-stop]] as a meta-genome window. An open
// end is clamped to the compiled chromosome length.
func parseWindow(mg *metagenome.Context, s string) (vcf.Region, error) {
	r, err := vcf.ParseRegion(s)
	if err != nil {
		return r, usageError{err: err}
	}
	n, err := mg.ChromosomeLength(r.Chrom)
	if err != nil {
		return r, err
	}
	r.End = min(r.End, n)
	return r, nil
}

// genomeArgs returns names, or every genome when names is empty.
func genomeArgs(mg *metagenome.Context, names []string) []string {
	if len(names) > 0 {
		return names
	}
	var out []string
	for _, g := range mg.Genomes() {
		out = append(out, g.Name())
	}
	return out
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		ppb           float64
		withReference bool
	)
	cmd := &cobra.Command{
		Use:   "query <chrom[:start-stop]> [genome...]",
		Short: "Print the display intervals of a meta-genome window",
		Long: `Print the display intervals of a meta-genome window for each genome.

Start and stop are meta-genome coordinates. --ppb sets the zoom level in
pixels per base; intervals narrower than one pixel are merged into MIX
intervals.`,
		Example: `  vibe-sync query -p project.yaml 1:1000-5000
  vibe-sync query -s trio --ppb 0.01 1 Mother Father`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ppb") {
				ppb = s.Viewport.DefaultPPB
			}
			mg := a.newContext(s, nil)
			if err := a.load(cmd.Context(), cmd, s, mg); err != nil {
				return err
			}
			r, err := parseWindow(mg, args[0])
			if err != nil {
				return err
			}

			names := genomeArgs(mg, args[1:])
			if withReference {
				names = append([]string{genome.ReferenceName}, names...)
			}
			w := output.NewIntervalWriter(cmd.OutOrStdout())
			if err := w.WriteHeader(); err != nil {
				return err
			}
			for _, name := range names {
				intervals, err := mg.ViewportQuery(name, r.Chrom, r.Start, r.End, ppb)
				if err != nil {
					return err
				}
				for _, iv := range intervals {
					if err := w.Write(name, r.Chrom, iv); err != nil {
						return err
					}
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&ppb, "ppb", 1, "Pixels per base (default: viewport.default_ppb)")
	cmd.Flags().BoolVar(&withReference, "reference", false, "Include the reference track")
	return cmd
}

func newVariantCmd(a *app) *cobra.Command {
	var info, format string
	cmd := &cobra.Command{
		Use:   "variant <genome> <chrom:pos>",
		Short: "Print a genome's entry at a reference position",
		Example: `  vibe-sync variant -p project.yaml Mother 1:12345
  vibe-sync variant -s trio Mother 1:12345 --info DP,AF --format GQ`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			loc, err := vcf.ParseRegion(args[1])
			if err != nil || !strings.Contains(args[1], ":") {
				return usagef("invalid location %q: want chrom:pos", args[1])
			}
			chrom, pos := loc.Chrom, loc.Start

			s, err := a.settings()
			if err != nil {
				return err
			}
			mg := a.newContext(s, nil)
			if err := a.load(cmd.Context(), cmd, s, mg); err != nil {
				return err
			}

			v, found, err := mg.VariantAt(name, chrom, pos)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s has no variant at %s:%d", name, chrom, pos)
			}

			out := cmd.OutOrStdout()
			w := output.NewVariantWriter(out)
			if err := w.WriteHeader(); err != nil {
				return err
			}
			if err := w.Write(name, pos, v); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, f := range []struct {
				section vcf.Section
				keys    string
			}{{vcf.SectionINFO, info}, {vcf.SectionFORMAT, format}} {
				if f.keys == "" {
					continue
				}
				for _, key := range strings.Split(f.keys, ",") {
					key = strings.TrimSpace(key)
					value, ok := mg.FieldValue(v, f.section, key)
					if !ok {
						fmt.Fprintf(out, "%s\t%s\t.\n", f.section, key)
						continue
					}
					fmt.Fprintf(out, "%s\t%s\t%v\n", f.section, key, value)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&info, "info", "", "Comma-separated INFO fields to decode")
	cmd.Flags().StringVar(&format, "format", "", "Comma-separated FORMAT fields to decode for the genome's sample")
	return cmd
}

func newTrackCmd(a *app) *cobra.Command {
	var hideSNPs bool
	cmd := &cobra.Command{
		Use:   "track <genome> <chrom>",
		Short: "Print every entry of a genome's track with its offsets",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, chrom := args[0], args[1]
			s, err := a.settings()
			if err != nil {
				return err
			}
			mg := a.newContext(s, nil)
			if err := a.load(cmd.Context(), cmd, s, mg); err != nil {
				return err
			}
			if hideSNPs {
				if _, err := mg.SetSNPsEnabled(name, false); err != nil {
					return err
				}
			}
			t, err := mg.Track(name, chrom)
			if err != nil {
				return err
			}

			w := output.NewVariantWriter(cmd.OutOrStdout())
			if err := w.WriteHeader(); err != nil {
				return err
			}
			t.View(func(t *track.Track) {
				for i := 0; i < t.Len() && err == nil; i++ {
					pos, v, _ := t.AtIndex(i)
					err = w.Write(name, pos, v)
				}
			})
			if err != nil {
				return err
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&hideSNPs, "hide-snps", false, "Hide the genome's SNPs before printing")
	return cmd
}
