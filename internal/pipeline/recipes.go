package pipeline

import (
	"musicetl/internal/cleaner"
	"musicetl/internal/merger"
	"musicetl/internal/schema"
	"musicetl/internal/table"
	"musicetl/internal/transformer"
	"musicetl/internal/transformer/builtin"
)

// Column names shared by the recipes.
const (
	colNominee       = "nominee"
	colArtists       = "artists"
	colTrackName     = "track_name"
	colWinner        = "winner"
	colNomineeStatus = "nominee_status"
)

// PopularityEdges and PopularityLabels bucket the 0-100 popularity score.
var (
	PopularityEdges  = []float64{0, 25, 50, 75, 101}
	PopularityLabels = []string{"low", "medium", "high", "very_high"}
)

// NominationTransform prunes and repairs the nomination table and renames the
// win flag to the indicator column.
func NominationTransform() transformer.Chain {
	return transformer.Chain{
		transformer.Named{Name: "drop columns", Transformer: builtin.DropColumns{
			Columns: []string{"published_at", "updated_at", "img"},
		}},
		transformer.Named{Name: "fill artist", Transformer: transformer.Func(cleaner.FillArtist)},
		transformer.Named{Name: "fill workers", Transformer: transformer.Func(cleaner.FillWorkers)},
		transformer.Named{Name: "drop nulls", Transformer: builtin.Require{
			Fields: []string{colNominee, cleaner.WorkersColumn, cleaner.ArtistColumn},
		}},
		transformer.Named{Name: "normalize keys", Transformer: normalizeKeys(cleaner.ArtistColumn, colNominee)},
		transformer.Named{Name: "rename", Transformer: builtin.Rename{
			Mapping: map[string]string{colWinner: colNomineeStatus},
		}},
	}
}

// NominationColumns lists the columns NominationTransform yields for a
// grammy_awards table, in order.
func NominationColumns() []string {
	var out []string
	for _, n := range schema.GrammyAwards.ColumnNames() {
		switch n {
		case "published_at", "updated_at", "img":
		case colWinner:
			out = append(out, colNomineeStatus)
		default:
			out = append(out, n)
		}
	}
	return out
}

// CatalogTransform prunes audio features, normalizes the join keys and adds
// the derived duration, popularity and genre columns.
func CatalogTransform() transformer.Chain {
	return transformer.Chain{
		transformer.Named{Name: "drop columns", Transformer: builtin.DropColumns{
			Columns: []string{"danceability", "energy", "key", "loudness", "mode",
				"acousticness", "liveness", "tempo", "time_signature"},
		}},
		transformer.Named{Name: "normalize keys", Transformer: normalizeKeys(colArtists, colTrackName)},
		transformer.Named{Name: "coerce", Transformer: builtin.Coerce{Types: map[string]table.Kind{
			"popularity":  table.KindInt,
			"duration_ms": table.KindInt,
			"explicit":    table.KindBool,
		}}},
		transformer.Named{Name: "duration", Transformer: builtin.Duration{From: "duration_ms", To: "duration_min_sec"}},
		transformer.Named{Name: "popularity", Transformer: builtin.Bucket{
			Column: "popularity",
			Edges:  PopularityEdges,
			Labels: PopularityLabels,
		}},
		transformer.Named{Name: "genre", Transformer: builtin.Genre{From: "track_genre", To: "genre"}},
	}
}

// MergeOptions joins nominations (artist, nominee) onto the catalog
// (artists, track_name).
func MergeOptions() merger.Options {
	return merger.Options{
		LeftKeys:  []string{cleaner.ArtistColumn, colNominee},
		RightKeys: []string{colArtists, colTrackName},
		Indicator: colNomineeStatus,
	}
}

// normalizeKeys folds no-break spaces, trims and lower-cases the join keys.
// Other columns keep their source spelling.
func normalizeKeys(cols ...string) transformer.Func {
	return func(t *table.Table) (*table.Table, error) {
		t, err := builtin.Normalize{Columns: cols}.Apply(t)
		if err != nil {
			return nil, err
		}
		return cleaner.NormalizeKeys(t, cols...)
	}
}
