package bindgen

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"

	"github.com/nativebind/bindgen/binder/binderio"
	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/loader"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/managedgen"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/scriptgen"
	"github.com/nativebind/bindgen/symtree"
)

type Options struct {
	// Manifests are the package manifests (or directories containing
	// one) to generate bindings for.
	Manifests []string
	// SymbolRoot is the directory holding the symbol-tree documents of
	// all headers.
	SymbolRoot string
	// Dest is the destination root of the generated files.
	Dest string
	// Config defaults to [config.Default].
	Config *config.Config
	Log    *logger.Logger

	// RootsOnly restricts generation to the packages named by
	// Manifests. Their dependencies are still loaded.
	RootsOnly bool
	// DryRun generates everything but writes no files.
	DryRun bool

	// Stats receives binding and timing tables if set.
	Stats io.Writer
	// Dump receives a dump of the loaded binding graph if set.
	Dump io.Writer
	// DOT receives the package dependency graph if set.
	DOT io.Writer
}

type Timings struct {
	Load, Script, Managed, Commit time.Duration
}

func (t Timings) Total() time.Duration {
	return t.Load + t.Script + t.Managed + t.Commit
}

type Result struct {
	// Packages are the generated packages in load order.
	Packages []*model.Package
	// Files are the generated file paths relative to Options.Dest.
	Files   []string
	Timings Timings

	script, managed map[*model.Package]int
}

// Run loads the packages of opts.Manifests with all their dependencies,
// generates script and managed bindings and writes them to opts.Dest.
// Files are written only once both writers have succeeded for every
// package.
func Run(opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Log

	res := &Result{
		script:  map[*model.Package]int{},
		managed: map[*model.Package]int{},
	}

	timeStart := time.Now()
	ld := loader.New(cfg, model.NewRegistry(), symtree.DirSource{Root: opts.SymbolRoot}, log)
	var roots []*model.Package
	for _, m := range opts.Manifests {
		pkg, err := ld.Load(m)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		roots = append(roots, pkg)
	}
	if opts.RootsOnly {
		for _, pkg := range roots {
			if !slices.Contains(res.Packages, pkg) {
				res.Packages = append(res.Packages, pkg)
			}
		}
	} else {
		res.Packages = ld.Registry.Packages()
	}
	res.Timings.Load = time.Since(timeStart)

	if opts.Dump != nil {
		dumpConfig := spew.ConfigState{
			Indent:                  "  ",
			MaxDepth:                6,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		}
		dumpConfig.Fdump(opts.Dump, res.Packages)
	}
	if opts.DOT != nil {
		if _, err := opts.DOT.Write(loader.DependencyDOT(roots)); err != nil {
			return nil, fmt.Errorf("write dependency graph: %w", err)
		}
	}

	out := binderio.NewOutputSet()

	timeStart = time.Now()
	sg := scriptgen.New(cfg, log)
	for _, pkg := range res.Packages {
		set, err := sg.Generate(pkg)
		if err != nil {
			return nil, fmt.Errorf("generate script bindings for %v: %w", pkg.Name, err)
		}
		res.script[pkg] = set.Len()
		if err := out.Merge(set); err != nil {
			return nil, err
		}
	}
	res.Timings.Script = time.Since(timeStart)

	timeStart = time.Now()
	mg := managedgen.New(cfg, log)
	for _, pkg := range res.Packages {
		set, err := mg.Generate(pkg)
		if err != nil {
			return nil, fmt.Errorf("generate managed bindings for %v: %w", pkg.Name, err)
		}
		res.managed[pkg] = set.Len()
		if err := out.Merge(set); err != nil {
			return nil, err
		}
	}
	res.Timings.Managed = time.Since(timeStart)

	res.Files = out.Paths()
	if !opts.DryRun {
		timeStart = time.Now()
		if err := out.Commit(opts.Dest); err != nil {
			return nil, err
		}
		res.Timings.Commit = time.Since(timeStart)
		log.Infof("wrote %v files to %v", out.Len(), opts.Dest)
	}

	if opts.Stats != nil {
		res.WriteStats(opts.Stats)
	}
	return res, nil
}

// WriteStats writes a table of bound symbols per package and a table
// of timings.
func (r *Result) WriteStats(w io.Writer) {
	fmt.Fprintf(w, "==Binding stats==\n")
	{
		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"Package", "Modules", "Classes", "Functions", "Properties", "Skipped", "Script files", "Managed files"})
		var total [7]int
		for _, pkg := range r.Packages {
			row := [7]int{len(pkg.Modules), 0, 0, 0, pkg.NumSkips(), r.script[pkg], r.managed[pkg]}
			for _, c := range pkg.Classes() {
				if !c.Bindable() || c.Decl == nil {
					continue
				}
				row[1]++
				row[2] += len(c.Functions)
				row[3] += len(c.Properties)
			}
			cells := []string{pkg.Name}
			for i, n := range row {
				total[i] += n
				cells = append(cells, strconv.Itoa(n))
			}
			tbl.Append(cells)
		}
		cells := []string{"==TOTAL=="}
		for _, n := range total {
			cells = append(cells, strconv.Itoa(n))
		}
		tbl.Append(cells)
		tbl.SetColumnAlignment([]int{
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
			tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		})
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.Render()
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "==Timing stats==\n")
	{
		timeTotal := r.Timings.Total()
		timePercent := func(t time.Duration) string {
			if timeTotal == 0 {
				return "0.00"
			}
			return strconv.FormatFloat(float64(t)/float64(timeTotal)*100, 'f', 2, 64)
		}

		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"Task", "Time", "Time %"})
		tbl.AppendBulk([][]string{
			{"Load and ingest", r.Timings.Load.String(), timePercent(r.Timings.Load)},
			{"Script bindings", r.Timings.Script.String(), timePercent(r.Timings.Script)},
			{"Managed bindings", r.Timings.Managed.String(), timePercent(r.Timings.Managed)},
			{"Write files", r.Timings.Commit.String(), timePercent(r.Timings.Commit)},
			{"==TOTAL==", timeTotal.String(), "100"},
		})
		tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT})
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.Render()
	}
}
