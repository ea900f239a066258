// Package server exposes a synchronized project over HTTP for a browser UI.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/metagenome"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
)

// DefaultPixelsPerBase is used when a request carries no ppb parameter.
const DefaultPixelsPerBase = 1.0

// Options configures the router.
type Options struct {
	// Gatherer serves /metrics. nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Logger receives one line per request. nil disables request logging.
	Logger *zap.Logger
	// PixelsPerBase is the default fit ratio for interval queries.
	PixelsPerBase float64
}

// NewRouter builds the gin engine serving mg.
func NewRouter(mg *metagenome.Context, opts Options) *gin.Engine {
	if opts.PixelsPerBase <= 0 {
		opts.PixelsPerBase = DefaultPixelsPerBase
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Logger != nil {
		router.Use(requestLogger(opts.Logger))
	}

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/chromosomes", NewChromosomesHandler(mg))
	router.GET("/chromosomes/:chrom", NewChromosomeHandler(mg))
	router.GET("/genomes", NewGenomesHandler(mg))
	router.GET("/genomes/:genome/chromosomes/:chrom/intervals", NewIntervalsHandler(mg, opts.PixelsPerBase))
	router.GET("/genomes/:genome/chromosomes/:chrom/variants/:pos", NewVariantHandler(mg))
	router.PUT("/genomes/:genome/snps", NewSNPToggleHandler(mg))
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// fail writes err with the status matching its kind.
func fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, metagenome.ErrUnknownGenome), errors.Is(err, metagenome.ErrUnknownChromosome):
		status = http.StatusNotFound
	case errors.Is(err, metagenome.ErrNotSynchronized):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

type chromosomeJSON struct {
	Name   string `json:"name"`
	Length int64  `json:"length"`
}

// NewChromosomesHandler lists every chromosome with its meta-genome length.
func NewChromosomesHandler(mg *metagenome.Context) func(c *gin.Context) {
	return func(c *gin.Context) {
		out := []chromosomeJSON{}
		for _, name := range mg.Chromosomes() {
			length, err := mg.ChromosomeLength(name)
			if err != nil {
				fail(c, err)
				return
			}
			out = append(out, chromosomeJSON{Name: name, Length: length})
		}
		c.JSON(http.StatusOK, out)
	}
}

// NewChromosomeHandler returns one chromosome.
func NewChromosomeHandler(mg *metagenome.Context) func(c *gin.Context) {
	return func(c *gin.Context) {
		name := c.Param("chrom")
		length, err := mg.ChromosomeLength(name)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, chromosomeJSON{Name: name, Length: length})
	}
}

type genomeJSON struct {
	Name    string   `json:"name"`
	RawName string   `json:"raw_name"`
	Group   string   `json:"group"`
	Kinds   []string `json:"kinds"`
}

// NewGenomesHandler lists the project genomes.
func NewGenomesHandler(mg *metagenome.Context) func(c *gin.Context) {
	return func(c *gin.Context) {
		out := []genomeJSON{}
		for _, g := range mg.Genomes() {
			kinds := []string{}
			for _, k := range variant.FileKinds {
				if mg.CanManage(g.Name(), k) {
					kinds = append(kinds, k.String())
				}
			}
			out = append(out, genomeJSON{Name: g.Name(), RawName: g.RawName, Group: g.Group, Kinds: kinds})
		}
		c.JSON(http.StatusOK, out)
	}
}

type intervalJSON struct {
	Start       int64  `json:"start"`
	Stop        int64  `json:"stop"`
	Type        string `json:"type"`
	Count       int    `json:"count"`
	RefPosition *int64 `json:"ref_position,omitempty"`
}

// NewIntervalsHandler serves the fitted display intervals of a window.
// start and stop are required; ppb defaults to defaultPPB.
func NewIntervalsHandler(mg *metagenome.Context, defaultPPB float64) func(c *gin.Context) {
	return func(c *gin.Context) {
		start, err := strconv.ParseInt(c.Query("start"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid start"})
			return
		}
		stop, err := strconv.ParseInt(c.Query("stop"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid stop"})
			return
		}
		ppb := defaultPPB
		if raw := c.Query("ppb"); raw != "" {
			if ppb, err = strconv.ParseFloat(raw, 64); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid ppb"})
				return
			}
		}

		intervals, err := mg.ViewportQuery(c.Param("genome"), c.Param("chrom"), start, stop, ppb)
		if err != nil {
			fail(c, err)
			return
		}
		out := make([]intervalJSON, 0, len(intervals))
		for _, iv := range intervals {
			j := intervalJSON{Start: iv.Start, Stop: iv.Stop, Type: iv.Kind.String(), Count: iv.Count}
			if iv.Variant != nil {
				ref := iv.Variant.ReferenceGenomePosition()
				j.RefPosition = &ref
			}
			out = append(out, j)
		}
		c.JSON(http.StatusOK, out)
	}
}

type variantJSON struct {
	Genome         string         `json:"genome"`
	Chrom          string         `json:"chrom"`
	Type           string         `json:"type"`
	Length         int64          `json:"length"`
	GenomePosition int64          `json:"genome_position"`
	RefPosition    int64          `json:"ref_position"`
	MetaPosition   int64          `json:"meta_position"`
	ExtraOffset    int64          `json:"extra_offset"`
	ID             string         `json:"id"`
	Ref            string         `json:"ref,omitempty"`
	Alt            string         `json:"alt,omitempty"`
	Quality        float64        `json:"quality"`
	GT             [2]int         `json:"gt"`
	Phased         bool           `json:"phased"`
	Info           map[string]any `json:"info,omitempty"`
	Format         map[string]any `json:"format,omitempty"`
}

// NewVariantHandler returns the entry of a genome at a reference position.
// The comma-separated info and format parameters select sub-fields to decode.
func NewVariantHandler(mg *metagenome.Context) func(c *gin.Context) {
	return func(c *gin.Context) {
		pos, err := strconv.ParseInt(c.Param("pos"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid position"})
			return
		}
		name, chrom := c.Param("genome"), c.Param("chrom")
		v, ok, err := mg.VariantAt(name, chrom, pos)
		if err != nil {
			fail(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, errorResponse{Error: "no variant at " + chrom + ":" + c.Param("pos")})
			return
		}

		a, b := v.GT()
		out := variantJSON{
			Genome:         name,
			Chrom:          chrom,
			Type:           v.Kind().String(),
			Length:         v.Length(),
			GenomePosition: v.GenomePosition(),
			RefPosition:    v.ReferenceGenomePosition(),
			MetaPosition:   v.MetaGenomePosition(),
			ExtraOffset:    v.ExtraOffset(),
			ID:             v.ID(),
			Ref:            v.Ref(),
			Alt:            v.Alt(),
			Quality:        v.Quality(),
			GT:             [2]int{a, b},
			Phased:         v.IsPhased(),
			Info:           fieldValues(mg, v, vcf.SectionINFO, c.Query("info")),
			Format:         fieldValues(mg, v, vcf.SectionFORMAT, c.Query("format")),
		}
		c.JSON(http.StatusOK, out)
	}
}

func fieldValues(mg *metagenome.Context, v *variant.Variant, section vcf.Section, keys string) map[string]any {
	if keys == "" {
		return nil
	}
	out := make(map[string]any)
	for _, key := range strings.Split(keys, ",") {
		if value, ok := mg.FieldValue(v, section, strings.TrimSpace(key)); ok {
			out[key] = value
		}
	}
	return out
}

// NewSNPToggleHandler shows or hides the SNPs of a genome.
func NewSNPToggleHandler(mg *metagenome.Context) func(c *gin.Context) {
	return func(c *gin.Context) {
		enabled, err := strconv.ParseBool(c.Query("enabled"))
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid enabled"})
			return
		}
		n, err := mg.SetSNPsEnabled(c.Param("genome"), enabled)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"toggled": n, "enabled": enabled})
	}
}
