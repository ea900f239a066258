package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-sync/internal/duckdb"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/track"
)

func newExportCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every compiled offset to a DuckDB database",
		Long: `Export the compiled tracks to a DuckDB database with one row per entry
and its reference, genome and meta-genome offsets. An existing export of the
same genome and chromosome is replaced.`,
		Example: `  vibe-sync export -p project.yaml -o offsets.duckdb
  duckdb offsets.duckdb "SELECT kind, count(*) FROM variant_offsets GROUP BY kind"`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return usagef("--output is required")
			}
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
			var tracks []*track.Track
			for _, chrom := range mg.Chromosomes() {
				names := append([]string{genome.ReferenceName}, genomeArgs(mg, nil)...)
				for _, name := range names {
					t, err := mg.Track(name, chrom)
					if err != nil {
						return err
					}
					tracks = append(tracks, t)
				}
			}

			db, err := duckdb.Open(outPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.WriteChromosomes(ls); err != nil {
				return err
			}
			n, err := db.WriteTracks(tracks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries from %d tracks to %s\n", n, len(tracks), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "DuckDB database file")
	return cmd
}
