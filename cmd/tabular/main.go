package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/datasource"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/session"
	"github.com/velum-io/tabular/pkg/table"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string

	root := &cobra.Command{
		Use:   "tabular",
		Short: "Tabular - uniform access to heterogeneous tabular data",
		Long: `Tabular reads CSV, JSON, Excel, Parquet and Elasticsearch data into a
uniform lazy table, flattens nested records into dotted columns, and projects
caller-defined field mappings over the result.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{Level: logLevel, Encoding: "console"})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tabular v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "formats",
		Short: "List supported source formats",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Supported formats:")
			for _, f := range datasource.Formats() {
				fmt.Printf("  - %s\n", f)
			}
		},
	})

	var headRows int
	var headFlatten, headMapped bool
	headCmd := &cobra.Command{
		Use:   "head <descriptor.yml>",
		Short: "Print the first rows of a data source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHead(args[0], headRows, headFlatten, headMapped)
		},
	}
	headCmd.Flags().IntVarP(&headRows, "rows", "n", 10, "Number of rows to print")
	headCmd.Flags().BoolVar(&headFlatten, "flatten", false, "Flatten nested values into dotted columns")
	headCmd.Flags().BoolVar(&headMapped, "mapped", false, "Apply the descriptor's mapping before printing")
	root.AddCommand(headCmd)

	root.AddCommand(&cobra.Command{
		Use:   "schema <descriptor.yml>",
		Short: "Print the columns of a data source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(args[0])
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "validate <descriptor.yml>",
		Short: "Check that a descriptor loads and its mapping resolves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHead(path string, rows int, flatten, mapped bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ds, err := datasource.FromYAML(ctx, path)
	if err != nil {
		return err
	}

	t := ds.Table()
	if flatten {
		if t, err = table.Flatten(ctx, t); err != nil {
			return err
		}
	}
	if mapped {
		if t, err = table.Project(t, ds.Mapping()); err != nil {
			return err
		}
	}

	sess, err := session.Default()
	if err != nil {
		return err
	}
	defer session.CloseDefault()

	start := time.Now()
	frame, err := sess.Compute(ctx, t)
	if err != nil {
		return err
	}
	logger.Get().Debug("source computed",
		zap.String("descriptor", path),
		zap.Duration("duration", time.Since(start)),
		zap.Int("rows", frame.Len()))

	printFrame(frame.Head(rows))
	return nil
}

func runSchema(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ds, err := datasource.FromYAML(ctx, path)
	if err != nil {
		return err
	}

	columns := ds.Table().Columns()
	if len(columns) == 0 {
		// lazily declared sources need one row to reveal their shape
		sample, err := ds.Table().Sample(ctx, 1)
		if err != nil {
			return err
		}
		columns = sample.Columns()
	}

	fmt.Printf("Format: %s\n", ds.Format())
	fmt.Println("Columns:")
	for _, c := range columns {
		fmt.Printf("  - %s\n", c)
	}
	return nil
}

func runValidate(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ds, err := datasource.FromYAML(ctx, path)
	if err != nil {
		return err
	}
	if len(ds.Mapping()) > 0 {
		if _, err := ds.MappedTable(); err != nil {
			return err
		}
	}

	fmt.Printf("%s: OK (format %s, %d partitions)\n", path, ds.Format(), ds.Table().NumPartitions())
	return nil
}

// printFrame renders a frame as aligned columns.
func printFrame(f *table.Frame) {
	columns := f.Columns()
	if len(columns) == 0 {
		fmt.Println("(empty)")
		return
	}

	widths := make([]int, len(columns))
	cells := make([][]string, f.Len())
	for i, c := range columns {
		widths[i] = len(c)
	}
	for r := 0; r < f.Len(); r++ {
		cells[r] = make([]string, len(columns))
		for i, c := range columns {
			v := f.Value(r, c)
			s := fmt.Sprintf("%v", v)
			if v == nil {
				s = ""
			}
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var b strings.Builder
	for i, c := range columns {
		fmt.Fprintf(&b, "%-*s  ", widths[i], c)
	}
	fmt.Println(strings.TrimRight(b.String(), " "))
	for r := 0; r < f.Len(); r++ {
		b.Reset()
		for i := range columns {
			fmt.Fprintf(&b, "%-*s  ", widths[i], cells[r][i])
		}
		fmt.Println(strings.TrimRight(b.String(), " "))
	}
}
