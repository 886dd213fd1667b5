// Command hfsdump prints the volume header and catalog of classic HFS
// disk images.
//
// Usage:
//
//	hfsdump [-header] [-catalog] [-paths] [-v] [-jobs N] [-overflow] image...
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-hfs/hfs"
	"github.com/robert-malhotra/go-hfs/internal/logging"
)

type options struct {
	header    bool
	catalog   bool
	paths     bool
	verbose   bool
	overflow  bool
	jobs      int
	encoding  string
	logFormat string
}

// report is the rendered output for one image.
type report struct {
	path string
	out  strings.Builder
	err  error // mount failure
}

func main() {
	var opts options
	flag.BoolVar(&opts.header, "header", false, "print the volume header")
	flag.BoolVar(&opts.catalog, "catalog", false, "print the catalog tree")
	flag.BoolVar(&opts.paths, "paths", false, "print the catalog as full paths")
	flag.BoolVar(&opts.verbose, "v", false, "log debug diagnostics to stderr")
	flag.BoolVar(&opts.overflow, "overflow", false, "resolve extents through the Extents-Overflow tree")
	flag.IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "images mounted in parallel")
	flag.StringVar(&opts.encoding, "encoding", hfs.MacRoman.Name(), "name encoding (macintosh, x-mac-cyrillic)")
	flag.StringVar(&opts.logFormat, "log-format", "text", "log format (text or json)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: hfsdump [flags] image...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if !opts.header && !opts.catalog && !opts.paths {
		opts.header, opts.catalog = true, true
	}

	level := logging.LevelWarn
	if opts.verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(os.Stderr, logging.Config{Level: level, Format: opts.logFormat})

	reports, err := run(flag.Args(), opts, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(2)
	}

	failed := false
	for _, r := range reports {
		io.WriteString(os.Stdout, r.out.String())
		if r.err != nil {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// run mounts and renders every image, at most opts.jobs at a time. Reports
// come back in argument order.
func run(paths []string, opts options, logger *slog.Logger) ([]*report, error) {
	enc, ok := hfs.LookupEncoding(opts.encoding)
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q", opts.encoding)
	}
	mountOpts := []hfs.MountOption{hfs.WithLogger(logger), hfs.WithEncoding(enc)}
	if opts.overflow {
		mountOpts = append(mountOpts, hfs.WithOverflowLookup())
	}

	reports := make([]*report, len(paths))
	var g errgroup.Group
	g.SetLimit(max(opts.jobs, 1))
	for i, path := range paths {
		r := &report{path: path}
		reports[i] = r
		g.Go(func() error {
			r.err = dump(&r.out, path, opts, mountOpts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// dump renders one image into w. It returns the mount error, if any;
// catalog problems are rendered and do not fail the image.
func dump(w io.Writer, path string, opts options, mountOpts []hfs.MountOption) error {
	fmt.Fprintln(w, titleStyle.Render(path))

	vol, err := hfs.Mount(path, mountOpts...)
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("mount failed: "+err.Error()))
		fmt.Fprintln(w)
		return err
	}
	defer vol.Close()

	if opts.header {
		printHeader(w, vol)
	}
	if opts.catalog || opts.paths {
		tree, err := vol.Catalog()
		if tree != nil {
			if opts.catalog {
				printTree(w, tree)
			}
			if opts.paths {
				printPaths(w, tree)
			}
		}
		if err != nil {
			printErrors(w, err)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func printHeader(w io.Writer, vol *hfs.Volume) {
	h := vol.Header()
	loc := vol.Location()
	rows := [][2]string{
		{"Name", vol.Name().String()},
		{"Signature", fmt.Sprintf("%#04x", h.Signature)},
		{"Found by", fmt.Sprintf("%s (volume at byte %d)", loc.Method, loc.VolumeStart)},
		{"Created", h.Created().Format("2006-01-02 15:04:05")},
		{"Modified", h.Modified().Format("2006-01-02 15:04:05")},
		{"Block size", fmt.Sprintf("%d", h.BlockSize)},
		{"Blocks", fmt.Sprintf("%d total, %d free", h.TotalBlocks, h.FreeBlocks)},
		{"First block", fmt.Sprintf("sector %d", h.FirstBlock)},
		{"Files", fmt.Sprintf("%d (%d in root)", h.FileCount, h.RootFileCount)},
		{"Folders", fmt.Sprintf("%d (%d in root)", h.DirCount, h.RootDirCount)},
		{"Next id", fmt.Sprintf("%d", h.NextCatalogID)},
		{"Catalog", fmt.Sprintf("%d bytes %v", h.CatalogFile.LogicalSize, h.CatalogFile.Extents.Descriptors())},
		{"Extents", fmt.Sprintf("%d bytes %v", h.ExtentsFile.LogicalSize, h.ExtentsFile.Extents.Descriptors())},
	}
	if h.Locked() {
		rows = append(rows, [2]string{"Locked", "yes"})
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", row[0]+":")), valueStyle.Render(row[1]))
	}
}

func printTree(w io.Writer, tree *hfs.CatalogTree) {
	hfs.Walk(tree, func(path string, e hfs.Entry, err error) error {
		if err != nil {
			return err
		}
		depth := strings.Count(path, hfs.PathSeparator)
		indent := strings.Repeat("  ", depth+1)

		name := e.Name().String()
		switch e := e.(type) {
		case *hfs.Directory:
			fmt.Fprintf(w, "%s%s %s\n", indent, dirStyle.Render(name+hfs.PathSeparator),
				mutedStyle.Render(fmt.Sprintf("id=%d items=%d", e.DirID, e.Valence)))
		case *hfs.File:
			fmt.Fprintf(w, "%s%s %s\n", indent, valueStyle.Render(name),
				mutedStyle.Render(fmt.Sprintf("id=%d %s/%s data=%d rsrc=%d",
					e.FileID, e.TypeCode(), e.CreatorCode(), e.Data.LogicalSize, e.Resource.LogicalSize)))
		}
		return nil
	})
}

func printPaths(w io.Writer, tree *hfs.CatalogTree) {
	hfs.Walk(tree, func(path string, e hfs.Entry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			path += hfs.PathSeparator
		}
		fmt.Fprintln(w, path)
		return nil
	})
}

func printErrors(w io.Writer, err error) {
	var de *hfs.DecodeError
	if !errors.As(err, &de) {
		fmt.Fprintln(w, errorStyle.Render("  catalog: "+err.Error()))
		return
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  %d catalog problem(s):", len(de.Errs))))
	for _, e := range de.Errs {
		fmt.Fprintln(w, errorStyle.Render("    "+e.Error()))
	}
}
