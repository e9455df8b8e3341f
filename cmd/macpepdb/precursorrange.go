package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/modification"
	"github.com/macpepdb/macpepdb-go/predicate"
)

// precursorRangeCommand renders the compiled predicate for a given
// precursor/tolerance/modification-collection for inspection, without
// touching a live store. Supplemented from
// original_source/macpepdb/tasks/precursor_range_calculation.py
// (spec.md §6 names "precursor-range" as a CLI subcommand; SPEC_FULL.md
// gives it a concrete body).
func precursorRangeCommand() *cli.Command {
	return &cli.Command{
		Name:  "precursor-range",
		Usage: "Render the compiled WHERE predicate for a precursor mass search.",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "precursor", Usage: "Neutral precursor mass in Daltons; required unless --mz is given."},
			&cli.Float64Flag{Name: "mz", Usage: "Observed m/z instead of --precursor; requires --charge."},
			&cli.IntFlag{Name: "charge", Usage: "Charge state, used with --mz."},
			&cli.Int64Flag{Name: "lower-ppm", Usage: "Lower ppm tolerance.", Value: 5},
			&cli.Int64Flag{Name: "upper-ppm", Usage: "Upper ppm tolerance.", Value: 5},
			&cli.IntFlag{Name: "variable-cap", Usage: "Maximum simultaneously-applied variable modifications.", Value: 9},
			&cli.StringSliceFlag{
				Name: "mod",
				Usage: "A modification as accession:residue:delta:static|variable:anywhere|n_terminus|c_terminus. Repeatable.",
			},
		},
		Action: func(c *cli.Context) error {
			precursor, err := resolvePrecursor(c)
			if err != nil {
				return err
			}
			mods, err := parseModificationFlags(c.StringSlice("mod"))
			if err != nil {
				return err
			}
			collection, err := modification.NewCollection(mods, c.Int("variable-cap"))
			if err != nil {
				return err
			}

			compiled := predicate.Compile(collection, precursor, c.Int64("lower-ppm"), c.Int64("upper-ppm"))
			if err := compiled.CheckArity(); err != nil {
				return err
			}
			bannerf("precursor %.9f Da, tolerance -%d/+%d ppm", mass.ToFloat(precursor), c.Int64("lower-ppm"), c.Int64("upper-ppm"))
			fmt.Printf("WHERE %s\n", compiled.SQL)
			fmt.Printf("VALUES %v\n", compiled.Values)
			return nil
		},
	}
}

func resolvePrecursor(c *cli.Context) (int64, error) {
	if c.IsSet("mz") {
		if !c.IsSet("charge") || c.Int("charge") <= 0 {
			return 0, fmt.Errorf("precursor-range: --mz requires a positive --charge")
		}
		return mass.MZToNeutralMass(c.Float64("mz"), c.Int("charge")), nil
	}
	if !c.IsSet("precursor") {
		return 0, fmt.Errorf("precursor-range: either --precursor or --mz is required")
	}
	return mass.ToInt(c.Float64("precursor")), nil
}

// parseModificationFlags parses repeated --mod
// accession:residue:delta:static|variable:position flags into
// modification.Modification values.
func parseModificationFlags(raw []string) ([]modification.Modification, error) {
	mods := make([]modification.Modification, 0, len(raw))
	for _, entry := range raw {
		fields := strings.Split(entry, ":")
		if len(fields) != 5 {
			return nil, fmt.Errorf("precursor-range: malformed --mod %q, expected accession:residue:delta:static|variable:position", entry)
		}
		delta, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("precursor-range: invalid delta in --mod %q: %w", entry, err)
		}
		position, err := modification.PositionFromString(fields[4])
		if err != nil {
			return nil, fmt.Errorf("precursor-range: %w", err)
		}
		if len(fields[1]) != 1 {
			return nil, fmt.Errorf("precursor-range: residue in --mod %q must be a single letter", entry)
		}
		isStatic, err := parseStaticVariable(fields[3])
		if err != nil {
			return nil, fmt.Errorf("precursor-range: %w", err)
		}
		mods = append(mods, modification.Modification{
			Accession: fields[0],
			AminoAcid: fields[1][0],
			Delta:     mass.ToInt(delta),
			IsStatic:  isStatic,
			Position:  position,
		})
	}
	return mods, nil
}

func parseStaticVariable(s string) (bool, error) {
	switch s {
	case "static":
		return true, nil
	case "variable":
		return false, nil
	default:
		return false, fmt.Errorf("unknown modification kind %q, expected static or variable", s)
	}
}
